// Package rolecall provides real-time coordination of AI-assisted team role
// assignment over NATS.
//
// A group of team members connects to a shared session, each submits
// personal attributes (major, traits, preferred work), and the group watches
// submission completeness update live. On an explicit trigger the
// coordinator calls an external recommendation service exactly once,
// reconciles the returned pairs against the session roster and role slots,
// persists the final assignment and broadcasts it to every connected
// member.
//
// # Quick Start
//
//	nc, _ := nats.Connect(nats.DefaultURL)
//
//	stores, err := store.Bootstrap(ctx, nc, store.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rec, err := recommend.NewClient(recommend.Config{APIKey: apiKey})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	cfg := rolecall.DefaultConfig()
//	coord, err := rolecall.NewCoordinator(&cfg, rolecall.Dependencies{
//	    Submissions: stores.Submissions,
//	    Membership:  stores.Sessions,
//	    State:       stores.Sessions,
//	    Assignments: stores.Assignments,
//	    Recommender: rec,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	hub, err := rolecall.NewHub(&cfg, nc, coord)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	http.Handle("/ws/roles", hub.WebsocketHandler(authenticator))
//
// # Architecture
//
// A session progresses through three states:
//
//	OPEN → ASSIGNING → FINALIZED
//
// OPEN accepts submissions and withdrawals. The transition to ASSIGNING is
// guarded twice: an in-process per-session claim stops duplicate triggers
// inside one instance, and the durable finalized flag (an atomic JetStream
// KV Create) stops duplicates across instances. A failed run returns the
// session to OPEN so a later trigger can retry; a successful run commits
// assignments, flips the monotonic finalized flag and clears submissions.
//
// Durable state lives in JetStream KV buckets (see the store package) and
// hub broadcasts fan out across server instances over core NATS subjects,
// so any number of rolecall processes can serve the same session.
package rolecall
