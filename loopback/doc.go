// Package loopback connects two simulator.Communicator endpoints in memory.
//
// NewPair returns an equipment and a host endpoint. Once both are open they exchange encoded
// HSMS frames over a net.Pipe, so every message crosses the secs2 codec as it would on a TCP
// connection. Sent primaries wait for their reply, matched by system bytes, until the T3 timeout.
//
// Typical use is running two simulators, or a simulator and a macro script, against each other
// without a network:
//
//	equip, host, err := loopback.NewPair(1, 1)
//	...
//	equipSim, err := simulator.New(equip, equipCfg)
//	hostSim, err := simulator.New(host, hostCfg)
package loopback
