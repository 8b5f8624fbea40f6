// Package health reports whether the cache's storage is usable.
//
// A Checker reports one component's Status: Healthy, Degraded, or
// Unhealthy. DirChecker probes that a cache parent directory accepts
// writes; StoreChecker round-trips a probe record through a record.Store.
//
//	results := health.CheckAll(ctx,
//	    health.NewDirChecker(osfs.New(memo.DefaultDir())),
//	)
//	if health.Overall(results) != health.StatusHealthy {
//	    log.Printf("cache degraded: %v", results)
//	}
package health
