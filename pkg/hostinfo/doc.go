// Package hostinfo reports what hardware a host has: logical, physical and
// performance core counts, the CPU brand string, total and free physical
// RAM, and a monotonic clock.
//
// # Basic Usage
//
// The package-level functions query the machine the process runs on:
//
//	fmt.Println(hostinfo.LogicalCoreCount(), hostinfo.TotalRAMBytes())
//	if brand, err := hostinfo.CPUBrandName(); err == nil {
//		fmt.Println(brand)
//	}
//
// A [Host] does the same for a chosen platform, including a remote one:
//
//	h, err := hostinfo.NewRemote(ctx, hostinfo.RemoteConfig{
//		Host:       "build-01",
//		User:       "ops",
//		AuthMethod: hostinfo.AgentAuth{},
//	}, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer h.Close()
//
// # Failure Reporting
//
// Counts that cannot be determined are [Unknown] and RAM sizes are
// [UnknownBytes]; neither is ever a guess. The brand string fails with an
// error matching [ErrUnavailable]. Errors returned by constructors are
// [CategorizedError] values; use [CategoryOf] to classify them.
//
// # Caching
//
// Static values never change while a host runs. [Cache] keeps them in
// memory for a TTL measured on the monotonic clock and, optionally, in a
// file below the application data directory so later runs can skip the
// query. Free RAM is always read live.
package hostinfo
