// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package netinfo enumerates interface addresses for the config screen.
package netinfo

import "net"

// NotAvailable is shown for an interface without an address.
const NotAvailable = "N/A"

// Addresses maps interface names to their preferred address, IPv4 first.
func Addresses() (map[string]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(ifaces))
	for _, ifc := range ifaces {
		addrs, err := ifc.Addrs()
		if err != nil {
			continue
		}
		if ip := preferred(addrs); ip != "" {
			out[ifc.Name] = ip
		}
	}
	return out, nil
}

func preferred(addrs []net.Addr) string {
	var v6 string
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			return ip.String()
		}
		if v6 == "" && !ip.IsLinkLocalUnicast() {
			v6 = ip.String()
		}
	}
	return v6
}

// Lookup returns a function reporting the address of name, or NotAvailable.
func Lookup(name string) func() string {
	return func() string {
		addrs, err := Addresses()
		if err != nil {
			return NotAvailable
		}
		if ip, ok := addrs[name]; ok {
			return ip
		}
		return NotAvailable
	}
}
