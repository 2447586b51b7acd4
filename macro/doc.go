// Package macro runs scripted sequences of simulator commands.
//
// A script is a list of Command values, built in code or parsed from text by ParseScript:
//
//	# wait for the host and report an event
//	open
//	send-sml S1F13
//	wait S1F14
//	sd S6F11 W
//	  <L[3] <U4 1> <U4 100> <L[0]>>
//	.
//	wait S6F12
//	sleep 0.5
//	close
//
// An Executor runs the commands in order. OPEN blocks until the peer is connected, WAIT blocks
// until a matching message is received, and SLEEP suspends for the given seconds. A disconnect
// while blocked in OPEN or WAIT aborts the script with ErrDisconnected.
package macro
