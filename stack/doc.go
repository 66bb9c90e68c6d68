// Package stack implements declarative multi-service orchestration on top
// of the primitive container operations in package engine.
//
// A Service is a fluent, engine-free builder describing one logical
// service: image, ports, environment, mounts, dependencies, replica
// count, restart policy, and health check. A Stack owns a named
// collection of services and drives an engine.Client to realize them:
//
//	eng, _ := engine.NewDocker()
//	st, _ := stack.New("demo", eng)
//	_ = st.Register(stack.NewService("db").Image("postgres:13"))
//	_ = st.Register(stack.NewService("web").
//	    Image("nginx:latest").
//	    Replicas(2).
//	    DependsOn("db"))
//	if err := st.Up(ctx); err != nil { /* handle */ }
//
// Up computes a dependency-respecting startup order (topological sort
// over depends_on), starts services wave by wave (concurrently within a
// wave), and names each replica {stack}-{service}-{index} so containers
// stay addressable and re-deployment is idempotent. Scale, Status,
// Restart, Logs, and Down operate on the tracked container set.
//
// Bulk operations use partial-failure semantics: individual replica
// failures are collected while sibling work completes, then surfaced as
// aggregate errors (UpError, ScaleError, DownError) naming exactly which
// service and replica failed. Local validation problems fail fast before
// any engine call.
//
// The only state this layer owns is the in-memory realized-container
// table; everything durable lives in the engine, recorded on containers
// as caravel.* labels. Attach rebuilds the table in a fresh process from
// a label-filtered listing.
package stack
