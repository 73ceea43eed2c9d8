package model

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"k8s.io/apimachinery/pkg/util/sets"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and referential consistency of an
// inventory. All problems are reported together.
func Validate(clusters []Cluster) error {
	var errs []error

	clusterIDs := sets.New[string]()
	hostIDs := sets.New[string]()
	vmIDs := sets.New[string]()

	for ci := range clusters {
		c := &clusters[ci]
		if err := validate.Struct(c); err != nil {
			errs = append(errs, fmt.Errorf("cluster %q: %w", c.ID, err))
		}
		if clusterIDs.Has(c.ID) {
			errs = append(errs, fmt.Errorf("duplicate cluster id %q", c.ID))
		}
		clusterIDs.Insert(c.ID)

		for hi := range c.Hosts {
			h := &c.Hosts[hi]
			if h.ClusterID != c.ID {
				errs = append(errs, fmt.Errorf("host %q references cluster %q but belongs to %q", h.ID, h.ClusterID, c.ID))
			}
			if hostIDs.Has(h.ID) {
				errs = append(errs, fmt.Errorf("duplicate host id %q", h.ID))
			}
			hostIDs.Insert(h.ID)

			for vi := range h.VMs {
				vm := &h.VMs[vi]
				if vm.HostID != h.ID {
					errs = append(errs, fmt.Errorf("vm %q references host %q but belongs to %q", vm.ID, vm.HostID, h.ID))
				}
				if vm.ClusterID != c.ID {
					errs = append(errs, fmt.Errorf("vm %q references cluster %q but belongs to %q", vm.ID, vm.ClusterID, c.ID))
				}
				if vmIDs.Has(vm.ID) {
					errs = append(errs, fmt.Errorf("duplicate vm id %q", vm.ID))
				}
				vmIDs.Insert(vm.ID)
			}
		}
	}

	// Ids are shared by lookups and layout focus, so they must be unique
	// across kinds too.
	for _, pair := range []struct {
		a, b   string
		as, bs sets.Set[string]
	}{
		{"cluster", "host", clusterIDs, hostIDs},
		{"cluster", "vm", clusterIDs, vmIDs},
		{"host", "vm", hostIDs, vmIDs},
	} {
		for _, id := range sets.List(pair.as.Intersection(pair.bs)) {
			errs = append(errs, fmt.Errorf("id %q is used by both a %s and a %s", id, pair.a, pair.b))
		}
	}

	return errors.Join(errs...)
}
