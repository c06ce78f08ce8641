/*
Package capture finds the interfaces to sniff on and opens live pcap handles.

An interface is selected when its name matches server.interface.name (or that
setting is empty) and one of its IPv4 addresses equals server.interface.ip
(or that setting is empty, in which case the first IPv4 address is used as
the listening address). Handles are opened in promiscuous mode with a 5000
byte snap length and, unless disabled, a BPF filter for the allowed ports so
the kernel drops uninteresting traffic before it reaches the decoder.

example:

	targets, err := capture.FindTargets("eth0", "10.0.0.5")
	if err != nil {
		// fatal at startup
	}
	handle, err := capture.OpenHandle(targets[0], opts)
	if err != nil {
		// recoverable, only this interface is affected
	}
	defer handle.Close()
*/
package capture
