// Package aprs implements an APRS-IS client: login with a derived
// passcode, then line-oriented CRLF packets for status, position,
// object, weather, telemetry and message reports.
package aprs

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"
)

// State tracks the session lifecycle. Packets are only accepted by the
// network once Authenticated.
type State int

const (
	StateDisconnected State = iota
	StateConnected
	StateAuthenticated
)

const dialTimeout = 5 * time.Second

// Config carries the static identity of the station.
type Config struct {
	Server   string // host:port of the APRS-IS server
	Callsign string
	Passcode string // derived from the callsign when empty
	Name     string // software name, sent in the login and comments
	Version  string
	SymTable byte // APRS symbol table, e.g. '/'
	SymCode  byte // APRS symbol code, e.g. '>'
}

// Client is not safe for concurrent use; the reporting loop owns it.
type Client struct {
	server   string
	callsign string
	passcode string
	name     string
	version  string
	symTable byte
	symCode  byte

	conn   net.Conn
	reader *bufio.Reader
	state  State

	tlmSeq  int
	tlmBits byte

	// Err is sticky: once a send fails it stays set until the caller
	// reconnects. Sends are best-effort in between.
	Err error
}

func NewClient(cfg Config) *Client {
	passcode := cfg.Passcode
	if passcode == "" {
		passcode = fmt.Sprintf("%d", Passcode(cfg.Callsign))
	}
	symTable := cfg.SymTable
	if symTable == 0 {
		symTable = '/'
	}
	symCode := cfg.SymCode
	if symCode == 0 {
		symCode = '>'
	}
	return &Client{
		server:   cfg.Server,
		callsign: cfg.Callsign,
		passcode: passcode,
		name:     cfg.Name,
		version:  cfg.Version,
		symTable: symTable,
		symCode:  symCode,
		tlmSeq:   999, // first telemetry report wraps to 0 and announces definitions
	}
}

func (c *Client) State() State { return c.state }

// Connect dials the APRS-IS server. Any previous session is dropped.
func (c *Client) Connect(ctx context.Context) error {
	c.Close()
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.server)
	if err != nil {
		return fmt.Errorf("aprs connect %s: %v", c.server, err)
	}
	c.conn = conn
	c.reader = bufio.NewReader(conn)
	c.state = StateConnected
	c.Err = nil
	return nil
}

func (c *Client) Close() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.reader = nil
	}
	c.state = StateDisconnected
}

// Authenticate performs the APRS-IS login. The server greets with a
// banner line, then answers the login with a single line that contains
// "verified" for a recognized callsign/passcode pair.
func (c *Client) Authenticate() error {
	if c.state != StateConnected {
		return fmt.Errorf("aprs authenticate: not connected")
	}
	// Server banner, e.g. "# aprsc 2.1.10".
	if _, err := c.reader.ReadString('\n'); err != nil {
		return c.fail(fmt.Errorf("aprs banner: %v", err))
	}
	login := fmt.Sprintf("user %s pass %s vers %s %s\r\n",
		c.callsign, c.passcode, c.name, c.version)
	if _, err := c.conn.Write([]byte(login)); err != nil {
		return c.fail(fmt.Errorf("aprs login: %v", err))
	}
	reply, err := c.reader.ReadString('\n')
	if err != nil {
		return c.fail(fmt.Errorf("aprs login reply: %v", err))
	}
	if i := strings.IndexByte(reply, '\r'); i >= 0 {
		reply = reply[:i]
	}
	if !strings.Contains(reply, "verified") || strings.Contains(reply, "unverified") {
		return c.fail(fmt.Errorf("aprs login rejected: %s", strings.TrimSpace(reply)))
	}
	c.state = StateAuthenticated
	return nil
}

// header is the shared packet prefix "CALLSIGN>WIDE1-1,TCPIP*:".
func (c *Client) header() string {
	return c.callsign + path
}

func (c *Client) send(pkt string) error {
	if c.conn == nil {
		err := fmt.Errorf("aprs send: not connected")
		c.Err = err
		return err
	}
	if _, err := c.conn.Write([]byte(pkt)); err != nil {
		return c.fail(fmt.Errorf("aprs send: %v", err))
	}
	return nil
}

func (c *Client) fail(err error) error {
	c.Err = err
	c.state = StateDisconnected
	return err
}

// SendStatus reports a status text. Empty messages are suppressed.
func (c *Client) SendStatus(message string) error {
	if message == "" {
		return nil
	}
	return c.send(c.header() + ">" + message + "\r\n")
}

// SendMessage sends a directed message: 9-character padded addressee,
// optional title capped at 8 characters, body capped at 40. An empty
// dest addresses the station itself.
func (c *Client) SendMessage(dest, title, message string) error {
	if dest == "" {
		dest = c.callsign
	}
	if len(title) > 8 {
		title = title[:8]
	}
	if len(message) > 40 {
		message = message[:40]
	}
	var b strings.Builder
	b.WriteString(c.header())
	b.WriteByte(':')
	b.WriteString(pad9(dest))
	b.WriteByte(':')
	b.WriteString(title)
	b.WriteString(message)
	b.WriteString("\r\n")
	return c.send(b.String())
}

// SendPosition reports the station position. A zero utm yields an
// untimestamped "!" report, otherwise a timestamped "@" report. Course
// and speed are included only when moving (spd > 0); altitude in
// meters is included when non-negative; the comment defaults to
// name/version.
func (c *Client) SendPosition(utm int64, lat, lng float64, cse, spd int, alt float64, comment string) error {
	var b strings.Builder
	b.WriteString(c.header())
	if utm > 0 {
		b.WriteByte('@')
		b.WriteString(packetTime(utm))
	} else {
		b.WriteByte('!')
	}
	c.positionBody(&b, lat, lng, cse, spd, alt, comment)
	b.WriteString("\r\n")
	return c.send(b.String())
}

// SendObject reports a named object at a position. The object name is
// space-padded to 9 characters; the '*' marks it alive.
func (c *Client) SendObject(utm int64, name string, lat, lng float64, cse, spd int, alt float64, comment string) error {
	var b strings.Builder
	b.WriteString(c.header())
	b.WriteByte(';')
	b.WriteString(pad9(name))
	b.WriteByte('*')
	b.WriteString(packetTime(utm))
	c.positionBody(&b, lat, lng, cse, spd, alt, comment)
	b.WriteString("\r\n")
	return c.send(b.String())
}

// SendWeather reports weather data at the station position with the
// weather symbol. Wind is never measured here, so the wind fields stay
// as placeholder dots. Temperature is degrees Fahrenheit (t... when
// unknown), humidity percent (h00 encodes 100%), pressure tenths of
// hPa, srad solar radiation in W/m2 (L under 1000, l above).
func (c *Client) SendWeather(utm int64, lat, lng float64, temp, hmdt, pres, srad int) error {
	var b strings.Builder
	b.WriteString(c.header())
	b.WriteByte('@')
	b.WriteString(packetTime(utm))
	b.WriteString(coordinates(lat, lng, '/', '_'))
	b.WriteString("_.../...g...")
	if temp >= -460 { // absolute zero in F
		fmt.Fprintf(&b, "t%03d", temp)
	} else {
		b.WriteString("t...")
	}
	if hmdt >= 0 {
		if hmdt == 100 {
			b.WriteString("h00")
		} else {
			fmt.Fprintf(&b, "h%02d", hmdt)
		}
	}
	if pres >= 0 {
		fmt.Fprintf(&b, "b%05d", pres)
	}
	if srad >= 0 {
		if srad < 1000 {
			fmt.Fprintf(&b, "L%03d", srad)
		} else {
			fmt.Fprintf(&b, "l%03d", srad-1000)
		}
	}
	b.WriteString(c.name)
	b.WriteString("\r\n")
	return c.send(b.String())
}

// SendTelemetry reports five analog channels and eight digital bits.
// The sequence number wraps after 999; each wrap to 0 first re-sends
// the four telemetry definition packets.
func (c *Client) SendTelemetry(p1, p2, p3, p4, p5 int, bits byte) error {
	c.tlmSeq++
	if c.tlmSeq > 999 {
		c.tlmSeq = 0
	}
	if c.tlmSeq == 0 {
		if err := c.sendTelemetrySetup(); err != nil {
			return err
		}
	}
	c.tlmBits = bits
	pkt := fmt.Sprintf("%sT#%03d,%03d,%03d,%03d,%03d,%03d,%08b\r\n",
		c.header(), c.tlmSeq, p1, p2, p3, p4, p5, bits)
	return c.send(pkt)
}

// sendTelemetrySetup announces the channel definitions as four
// messages addressed to the station itself, sharing one header.
func (c *Client) sendTelemetrySetup() error {
	header := c.header() + ":" + pad9(c.callsign) + ":"
	for _, payload := range []string{
		tlmPARM,
		tlmEQNS,
		tlmUNIT,
		tlmBITS + c.name + "/" + c.version,
	} {
		if err := c.send(header + payload + "\r\n"); err != nil {
			return err
		}
	}
	return nil
}
