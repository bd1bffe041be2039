package netutil

import (
	"errors"
	"fmt"
	"net"
)

// FreeTCPPort asks the OS for an ephemeral port on host by binding to port
// 0 and immediately releasing it, used when the caller hasn't pinned a
// fixed debugging port.
func FreeTCPPort(host string) (int, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:0", host))
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	tcpAddr, ok := ln.Addr().(*net.TCPAddr)
	if !ok {
		return 0, errors.New("netutil: unexpected listener address type")
	}
	return tcpAddr.Port, nil
}
