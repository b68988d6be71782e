package core

import (
	"fmt"
	"net"

	"github.com/pion/stun"
)

const DefaultSTUNServer = "stun.l.google.com:19302"

// GetLocalIP はループバック以外の IPv4 アドレスを返す。プライベートアドレスを優先する。
func GetLocalIP() (net.IP, error) {
	interfaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var fallback net.IP
	for _, iface := range interfaces {
		// ループバックや無効なインターフェースをスキップ
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil || ipNet.IP.IsLoopback() {
				continue
			}
			if ipNet.IP.IsPrivate() {
				return ipNet.IP.To4(), nil
			}
			if fallback == nil {
				fallback = ipNet.IP.To4()
			}
		}
	}
	if fallback != nil {
		return fallback, nil
	}

	// 見つからない場合は外部向けの経路から取得
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil, fmt.Errorf("no suitable local IP address found: %w", err)
	}
	defer conn.Close()

	return conn.LocalAddr().(*net.UDPAddr).IP, nil
}

// STUNを使って外部アドレスを取得
func GetExternalAddress(server string) (*net.UDPAddr, error) {
	if server == "" {
		server = DefaultSTUNServer
	}

	conn, err := net.Dial("udp", server)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	c, err := stun.NewClient(conn)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	var result *net.UDPAddr
	var eventErr error
	err = c.Do(stun.MustBuild(stun.TransactionID, stun.BindingRequest), func(e stun.Event) {
		if e.Error != nil {
			eventErr = e.Error
			return
		}
		var addr stun.XORMappedAddress
		if parseErr := addr.GetFrom(e.Message); parseErr != nil {
			eventErr = parseErr
			return
		}
		result = &net.UDPAddr{IP: addr.IP, Port: addr.Port}
	})
	if err != nil {
		return nil, err
	}
	if eventErr != nil {
		return nil, eventErr
	}
	return result, nil
}
