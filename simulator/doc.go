// Package simulator implements the message correlation and auto-reply engine of a SECS-II
// equipment simulator.
//
// A Simulator sits on top of a Communicator, the transport delivering HSMS data messages, and
// provides:
//   - a TemplatePool of SML reply templates keyed by alias and indexed by stream-function,
//   - the pending list of received primaries expecting a reply; an outgoing reply is sent as the
//     reply of the first pending primary it matches, or as a new message otherwise,
//   - auto-replies: template replies, SxF0 abort replies and S9Fy error reports, each controlled
//     by a runtime-switchable policy,
//   - the connection state (ConnState) with a blocking WaitConnected,
//   - subscriptions to received messages, sent messages and connectivity changes,
//   - prometheus metrics.
//
// Configuration is built with functional options (NewConfig) or read from a TOML file
// (LoadConfigFile).
//
// Usage Example:
//
//	cfg, err := simulator.NewConfig(simulator.WithDeviceID(1), simulator.WithAutoReplyS9Fy(true))
//	if err != nil {
//	    // handle error
//	}
//	sim, err := simulator.New(comm, cfg)
//	if err != nil {
//	    // handle error
//	}
//	_ = sim.Pool().AddSML("S1F2", `S1F2 <L <A "MDLN"> <A "1.0">>.`)
//	if err := sim.Open(ctx); err != nil {
//	    // handle error
//	}
//	_ = sim.WaitConnected(ctx)
//	reply, err := sim.SendDirect(ctx, `S1F1 W .`)
package simulator
