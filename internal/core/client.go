package core

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"SimpChat/network"

	"github.com/sirupsen/logrus"
)

var errNoClient = errors.New("no client attached")

// ClientLink is the TCP control channel of the attached client.
type ClientLink struct {
	conn     net.Conn
	username string // d.mu で保護

	wmu     sync.Mutex
	timeout time.Duration
}

// Send は 1 行書き込む。nil のリンクにはエラーを返す。
func (c *ClientLink) Send(line string) error {
	if c == nil {
		return errNoClient
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.timeout > 0 {
		c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	_, err := io.WriteString(c.conn, line+"\n")
	return err
}

func (c *ClientLink) Close() error {
	return c.conn.Close()
}

func (d *Daemon) serveClients() {
	defer d.wg.Done()
	log := d.log.WithField("component", "client")

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		d.listener.SetDeadline(time.Now().Add(d.config.PollInterval))
		conn, err := d.listener.Accept()
		if err != nil {
			if network.IsTimeout(err) {
				continue
			}
			if d.ctx.Err() != nil {
				return
			}
			log.Errorf("Accept failed: %v", err)
			continue
		}

		d.attach(conn)
	}
}

func (d *Daemon) attach(conn net.Conn) {
	log := d.log.WithFields(logrus.Fields{"component": "client", "client": conn.RemoteAddr()})
	link := &ClientLink{conn: conn, timeout: d.config.Timeout}

	d.mu.Lock()
	if d.client != nil {
		d.mu.Unlock()
		log.Warn("Refusing second client")
		link.Send(RespError + "another client is already attached")
		conn.Close()
		return
	}
	d.client = link
	d.mu.Unlock()

	log.Info("Client attached")
	link.Send(RespWelcome)

	d.wg.Add(1)
	go d.serveClient(link)
}

func (d *Daemon) serveClient(link *ClientLink) {
	defer d.wg.Done()
	defer d.detach(link)

	scanner := bufio.NewScanner(link.conn)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		cmd, err := ParseCommand(line)
		if err != nil {
			link.Send(RespError + err.Error())
			continue
		}

		if cmd.Code == CmdQuit {
			d.endChat()
			link.Send(RespGoodbye)
			return
		}
		if resp := d.dispatch(link, cmd); resp != "" {
			link.Send(resp)
		}
	}
}

func (d *Daemon) dispatch(link *ClientLink, cmd Command) string {
	switch cmd.Code {
	case CmdUsername:
		return d.setUsername(link, cmd.Arg)
	case CmdStartChat:
		return d.startChat(link, cmd.Arg)
	case CmdReply:
		return d.replyToRequest(cmd.Arg)
	case CmdMessage:
		return d.sendMessage(cmd.Arg)
	}
	return RespError + "unsupported command"
}

// detach はクライアントが切断したときに呼ばれる。チャット中なら終了する。
func (d *Daemon) detach(link *ClientLink) {
	defer link.Close()

	d.mu.Lock()
	if d.client != link {
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	// FIN の送信者名を残すため、セッション終了後にリンクを外す
	d.endChat()

	d.mu.Lock()
	if d.client == link {
		d.client = nil
	}
	d.mu.Unlock()
	d.log.WithField("component", "client").Info("Client detached")
}
