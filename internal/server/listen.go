package server

import (
	"fmt"
	"net"
)

// pickIP selects a suitable IPv4 address from the local interfaces
// according to the given mode ("private" or "public").
func pickIP(mode string) (net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if (iface.Flags&net.FlagUp) == 0 || (iface.Flags&net.FlagLoopback) != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			var ip net.IP
			switch v := addr.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			}
			if ip == nil || ip.IsLoopback() {
				continue
			}
			ip = ip.To4()
			if ip == nil {
				continue
			}

			if mode == "private" && isPrivateIP(ip) {
				return ip, nil
			}
			if mode == "public" && !isPrivateIP(ip) {
				return ip, nil
			}
		}
	}
	return nil, fmt.Errorf("no suitable %s interface found", mode)
}

// isPrivateIP checks whether the given IPv4 address belongs to one of the
// RFC1918 private address ranges.
func isPrivateIP(ip net.IP) bool {
	privateBlocks := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
	}
	for _, block := range privateBlocks {
		_, cidr, _ := net.ParseCIDR(block)
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// Listen binds a TCP listener on bind:port and returns the address to
// advertise to peers. If host is empty it is computed from mode ("private"
// or "public"); otherwise host is used as-is (validated against mode only
// when it parses as an IP literal).
func Listen(mode, bind, host string, port int) (net.Listener, string, error) {
	if bind == "" {
		bind = "0.0.0.0"
	}
	bindAddr := fmt.Sprintf("%s:%d", bind, port)

	ln, err := net.Listen("tcp", bindAddr)
	if err != nil {
		return nil, "", err
	}

	actualPort := ln.Addr().(*net.TCPAddr).Port

	if host == "" {
		ip, err := pickIP(mode)
		if err != nil {
			ln.Close()
			return nil, "", err
		}
		host = ip.String()
	} else if ip := net.ParseIP(host); ip != nil {
		if mode == "private" && !isPrivateIP(ip) {
			ln.Close()
			return nil, "", fmt.Errorf("host %s is not private but mode=private", host)
		}
		if mode == "public" && isPrivateIP(ip) {
			ln.Close()
			return nil, "", fmt.Errorf("host %s is private but mode=public", host)
		}
	}

	advertised := fmt.Sprintf("%s:%d", host, actualPort)
	return ln, advertised, nil
}
