package daemon

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"SimpChat/internal/core"
	"SimpChat/internal/history"
	"SimpChat/peer"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "デーモンを起動します",
	RunE:  runStart,
}

func init() {
	defaults := core.DefaultConfig()

	// 基本設定フラグ
	startCmd.Flags().String("host", defaults.Host, "バインドするアドレス")
	startCmd.Flags().Int("peer-port", defaults.PeerPort, "ピア用 UDP ポート")
	startCmd.Flags().Int("client-port", defaults.ClientPort, "クライアント用 TCP ポート")

	// プロトコル設定
	startCmd.Flags().Duration("timeout", defaults.Timeout, "ハンドシェイクと ACK の待ち時間")
	startCmd.Flags().Int("handshake-retries", defaults.HandshakeRetries, "SYN の再送回数")
	startCmd.Flags().Int("delivery-retries", defaults.DeliveryRetries, "CHAT の再送回数")
	startCmd.Flags().Duration("accept-timeout", defaults.AcceptTimeout, "相手の ACCEPT を待つ時間")
	startCmd.Flags().Duration("poll-interval", defaults.PollInterval, "ループが停止要求を確認する間隔")

	// 詳細設定
	startCmd.Flags().String("history", "", "メッセージ履歴の SQLite ファイル（空なら保存しない）")
	startCmd.Flags().Duration("stats-interval", defaults.StatsInterval, "統計ログの間隔（0 で無効）")
	startCmd.Flags().Bool("stun", false, "STUN で外部アドレスを調べる")
	startCmd.Flags().String("stun-server", core.DefaultSTUNServer, "STUN サーバー")
}

func runStart(cmd *cobra.Command, args []string) error {
	config := core.DefaultConfig()
	config.Host, _ = cmd.Flags().GetString("host")
	config.PeerPort, _ = cmd.Flags().GetInt("peer-port")
	config.ClientPort, _ = cmd.Flags().GetInt("client-port")
	config.Timeout, _ = cmd.Flags().GetDuration("timeout")
	config.HandshakeRetries, _ = cmd.Flags().GetInt("handshake-retries")
	config.DeliveryRetries, _ = cmd.Flags().GetInt("delivery-retries")
	config.AcceptTimeout, _ = cmd.Flags().GetDuration("accept-timeout")
	config.PollInterval, _ = cmd.Flags().GetDuration("poll-interval")
	config.StatsInterval, _ = cmd.Flags().GetDuration("stats-interval")
	historyPath, _ := cmd.Flags().GetString("history")
	useStun, _ := cmd.Flags().GetBool("stun")
	stunServer, _ := cmd.Flags().GetString("stun-server")

	if config.Timeout <= 0 || config.PollInterval <= 0 {
		return fmt.Errorf("timeout and poll interval must be positive")
	}
	if config.HandshakeRetries < 0 || config.DeliveryRetries < 0 {
		return fmt.Errorf("retry counts must not be negative")
	}

	d := core.New(config)

	if historyPath != "" {
		store, err := history.Open(historyPath)
		if err != nil {
			return err
		}
		defer store.Close()
		d.SetRecorder(store)
		logrus.Infof("Recording chat history to %s", historyPath)
	}

	if err := d.Start(); err != nil {
		return err
	}

	announce(config.PeerPort, useStun, stunServer)

	// シグナル待機
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logrus.Info("Received signal, shutting down...")

	return d.Stop()
}

// announce は相手に伝えるアドレスとコードをログに出す
func announce(port int, useStun bool, stunServer string) {
	if ip, err := core.GetLocalIP(); err == nil {
		logAddr("Local", &net.UDPAddr{IP: ip, Port: port})
	} else {
		logrus.Warnf("Local IP detection failed: %v", err)
	}

	if !useStun {
		return
	}
	ext, err := core.GetExternalAddress(stunServer)
	if err != nil {
		logrus.Warnf("STUN lookup failed: %v", err)
		return
	}
	// NAT がポートを保つ前提でピア用ポートを使う
	logAddr("External", &net.UDPAddr{IP: ext.IP, Port: port})
}

func logAddr(label string, addr *net.UDPAddr) {
	code, err := peer.EncodeAddr(addr)
	if err != nil {
		logrus.Infof("%s address: %s", label, addr)
		return
	}
	logrus.Infof("%s address: %s (code %s)", label, addr, code)
}
