package ops

import (
	"context"
	"fmt"
	"sort"

	"github.com/chazu/pointyard/pkg/scene"
)

// Cluster labels each selected point set with DBSCAN and inserts one
// sibling point set per cluster, named <item>_Cluster_<label>. Noise is
// emitted as <item>_Cluster_noise only when the cluster.keep_noise
// setting is on.
func (e *Engine) Cluster(ctx context.Context, sel []scene.Key, eps float64, minPoints int) (Result, error) {
	return e.run("cluster", func(res *Result) error {
		if eps <= 0 || minPoints < 1 {
			return fmt.Errorf("ops: cluster needs eps > 0 and min points >= 1, got %g and %d", eps, minPoints)
		}
		for i, key := range sel {
			if e.cancelled(ctx, res, sel[i:]) {
				return ctx.Err()
			}
			_, ps := e.pointSet(res, key)
			if ps == nil {
				continue
			}
			if len(ps.Points) == 0 {
				e.skip(res, key, "point set is empty")
				continue
			}
			labels, err := e.k.ClusterLabels(ps.Points, eps, minPoints)
			if err != nil {
				e.skip(res, key, "%v", err)
				continue
			}
			if len(labels) != len(ps.Points) {
				e.skip(res, key, "kernel returned %d labels for %d points", len(labels), len(ps.Points))
				continue
			}

			groups := make(map[int][]int)
			for j, l := range labels {
				groups[l] = append(groups[l], j)
			}
			order := make([]int, 0, len(groups))
			for l := range groups {
				if l >= 0 || e.cfg.Cluster.KeepNoise {
					order = append(order, l)
				}
			}
			sort.Ints(order)
			if len(order) == 0 {
				e.skip(res, key, "no clusters found")
				continue
			}
			e.log.Info("clustered "+key.String(), "clusters", len(order), "noise", len(groups[-1]))

			for _, l := range order {
				suffix := fmt.Sprint(l)
				if l < 0 {
					suffix = "noise"
				}
				base := key.Item + "_Cluster_" + suffix
				if _, err := e.insert(res, key.Dataset, base, ps.Subset(groups[l])); err != nil {
					e.skip(res, key, "cluster %s: %v", suffix, err)
				}
			}
		}
		return nil
	})
}
