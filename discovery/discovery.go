// Package discovery implements the RFC 3489 section 10.1 NAT discovery
// procedure: a short sequence of STUN Binding Requests, sent to a server
// and (for two of the tests) to its alternate address, whose
// response/no-response pattern classifies the NAT or firewall a client
// sits behind.
package discovery

import (
	"net"
	"time"

	"github.com/pion/logging"
	"github.com/pkg/errors"

	"github.com/maoxuli/stunclient/bytebuffer"
	"github.com/maoxuli/stunclient/stun3489"
	"github.com/maoxuli/stunclient/udptransport"
)

// Outcome is the classification Discover settles on.
type Outcome int

const (
	// UdpBlocked: Test I drew no response at all.
	UdpBlocked Outcome = iota
	// OpenInternet: the client is not behind any NAT or firewall.
	OpenInternet
	// SymmetricUdpFirewall: UDP egresses fine but only the exact source
	// address/port of the request may respond.
	SymmetricUdpFirewall
	// FullConeNat: any external host can reach the mapped endpoint.
	FullConeNat
	// SymmetricNat: the external mapping changes per destination.
	SymmetricNat
	// RestrictedConeNat: only hosts the client has sent to may respond,
	// regardless of port.
	RestrictedConeNat
	// PortRestrictedConeNat: as RestrictedConeNat, but the port must also
	// match.
	PortRestrictedConeNat
	// Indeterminate: the server sent a valid Test I response but then
	// stopped responding entirely to the same request replayed at its own
	// CHANGED-ADDRESS, which RFC 3489 does not anticipate from a
	// compliant server. The original implementation treated this as a
	// programming-error assertion; here it is a reported outcome instead.
	Indeterminate
)

func (o Outcome) String() string {
	switch o {
	case UdpBlocked:
		return "UDP Blocked"
	case OpenInternet:
		return "Open Internet"
	case SymmetricUdpFirewall:
		return "Symmetric UDP Firewall"
	case FullConeNat:
		return "Full Cone NAT"
	case SymmetricNat:
		return "Symmetric NAT"
	case RestrictedConeNat:
		return "Restricted Cone NAT"
	case PortRestrictedConeNat:
		return "Port Restricted Cone NAT"
	case Indeterminate:
		return "Indeterminate"
	default:
		return "Unknown"
	}
}

// Step records one Binding Request/response round in the decision tree.
type Step struct {
	Test      string
	SentTo    string
	Responded bool
	Mapped    *net.UDPAddr
}

// Trace is the ordered sequence of Steps taken to reach a Result, letting
// callers (tests, the CLI) inspect the exact path instead of scraping log
// output.
type Trace []Step

// Result is the outcome of a Discover call together with the Trace that
// produced it.
type Result struct {
	Outcome Outcome
	Trace   Trace
}

// Engine runs the discovery procedure against one STUN server.
type Engine struct {
	host    string
	port    int
	timeout time.Duration
	log     logging.LeveledLogger

	ep *udptransport.Endpoint
}

// New returns an Engine targeting host:port with the given per-binding
// timeout (RFC 3489 suggests 2000ms total, retried every 200ms). A nil
// logger is replaced with a no-op one so library callers are never forced
// into a logging policy.
func New(host string, port int, timeout time.Duration, log logging.LeveledLogger) *Engine {
	if log == nil {
		log = logging.NewDefaultLeveledLoggerForScope("discovery", logging.LogLevelDisabled, nil)
	}
	return &Engine{host: host, port: port, timeout: timeout, log: log}
}

// Discover runs the full decision tree and returns the classification.
func (e *Engine) Discover() (*Result, error) {
	ep, err := udptransport.Listen()
	if err != nil {
		return nil, errors.Wrap(err, "discovery: bind local endpoint")
	}
	defer ep.Close()
	e.ep = ep

	if err := e.ep.SetRemoteAddress(e.host, e.port); err != nil {
		return nil, errors.Wrap(err, "discovery: resolve server address")
	}

	result := &Result{}

	e.log.Infof("TEST I to %s", e.ep.RemoteAddress())
	t1, err := e.binding(false, false)
	if err != nil {
		return nil, err
	}
	result.Trace = append(result.Trace, e.step("TEST I", t1))

	if t1 == nil {
		result.Outcome = UdpBlocked
		return result, nil
	}

	t1Mapped, ok := t1.MappedAddress()
	if !ok {
		return nil, errors.New("discovery: TEST I response missing MAPPED-ADDRESS")
	}

	local, err := e.isLocalAddress(t1Mapped.IP)
	if err != nil {
		return nil, err
	}

	if local {
		e.log.Info("TEST I -> mapped address matches a local interface")
		e.log.Infof("TEST II to %s", e.ep.RemoteAddress())
		t2, err := e.binding(true, true)
		if err != nil {
			return nil, err
		}
		result.Trace = append(result.Trace, e.step("TEST II", t2))

		if t2 == nil {
			result.Outcome = SymmetricUdpFirewall
		} else {
			result.Outcome = OpenInternet
		}
		return result, nil
	}

	e.log.Info("TEST I -> mapped address differs from local interface")
	e.log.Infof("TEST II to %s", e.ep.RemoteAddress())
	t2, err := e.binding(true, true)
	if err != nil {
		return nil, err
	}
	result.Trace = append(result.Trace, e.step("TEST II", t2))

	if t2 != nil {
		result.Outcome = FullConeNat
		return result, nil
	}

	changed, ok := t1.ChangedAddress()
	if !ok {
		return nil, errors.New("discovery: TEST I response missing CHANGED-ADDRESS")
	}
	e.ep.SetRemoteAddr(&net.UDPAddr{IP: changed.IP, Port: int(changed.Port)})

	e.log.Infof("TEST I (again) to %s", e.ep.RemoteAddress())
	t1b, err := e.binding(false, false)
	if err != nil {
		return nil, err
	}
	result.Trace = append(result.Trace, e.step("TEST I (again)", t1b))

	if t1b == nil {
		// RFC 3489 does not anticipate a compliant server answering the
		// first Test I and then going silent on an identical retry at its
		// own advertised CHANGED-ADDRESS.
		result.Outcome = Indeterminate
		return result, nil
	}

	t1bMapped, ok := t1b.MappedAddress()
	if !ok {
		return nil, errors.New("discovery: TEST I (again) response missing MAPPED-ADDRESS")
	}

	if !sameAddress(t1bMapped, t1Mapped) {
		result.Outcome = SymmetricNat
		return result, nil
	}

	e.log.Infof("TEST III to %s", e.ep.RemoteAddress())
	t3, err := e.binding(false, true)
	if err != nil {
		return nil, err
	}
	result.Trace = append(result.Trace, e.step("TEST III", t3))

	if t3 != nil {
		result.Outcome = RestrictedConeNat
	} else {
		result.Outcome = PortRestrictedConeNat
	}
	return result, nil
}

func (e *Engine) step(name string, resp *stun3489.Message) Step {
	s := Step{Test: name, SentTo: e.ep.RemoteAddress().String(), Responded: resp != nil}
	if resp != nil {
		if mapped, ok := resp.MappedAddress(); ok {
			s.Mapped = &net.UDPAddr{IP: mapped.IP, Port: int(mapped.Port)}
		}
	}
	return s
}

// binding sends a single Binding Request (optionally with CHANGE-REQUEST
// flags set) and retries every 200ms, on the calling goroutine, until a
// correlated response arrives or the engine's overall timeout elapses. No
// request is resent after the final receive attempt.
func (e *Engine) binding(changeIP, changePort bool) (*stun3489.Message, error) {
	var attrs []stun3489.Attribute
	if changeIP || changePort {
		attrs = append(attrs, stun3489.Attribute{
			Type:  stun3489.AttrChangeRequest,
			Value: stun3489.ChangeRequest{ChangeIP: changeIP, ChangePort: changePort},
		})
	}
	req := stun3489.NewBindingRequest(attrs...)

	if err := e.send(req); err != nil {
		return nil, err
	}

	const retryInterval = 200 * time.Millisecond
	attempts := int(e.timeout / retryInterval)
	if attempts < 1 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		resp, err := e.receive(req.TransactionID, retryInterval)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
		if i < attempts-1 {
			if err := e.send(req); err != nil {
				return nil, err
			}
		}
	}
	return nil, nil
}

func (e *Engine) send(m *stun3489.Message) error {
	buf := bytebuffer.New()
	if err := stun3489.Encode(m, buf); err != nil {
		return errors.Wrap(err, "discovery: encode request")
	}
	e.log.Debugf(">> %s tid=%s", m.Type, m.TransactionID)
	return e.ep.Send(buf.Bytes())
}

// receive waits up to timeout for a single datagram, decodes it as a STUN
// message, and returns it only if its transaction id matches want.
// Unmatched or undecodable datagrams are logged and ignored, not treated
// as a response.
func (e *Engine) receive(want [16]byte, timeout time.Duration) (*stun3489.Message, error) {
	raw := make([]byte, 1500)
	n, from, err := e.ep.Recv(raw, timeout)
	if err != nil {
		if err == udptransport.ErrTimeout {
			return nil, nil
		}
		return nil, errors.Wrap(err, "discovery: receive")
	}

	buf := bytebuffer.Wrap(raw[:n])
	resp, err := stun3489.Decode(buf)
	if err != nil {
		e.log.Debugf("<< unparseable datagram from %s: %v", from, err)
		return nil, nil
	}
	e.log.Debugf("<< %s tid=%s from %s", resp.Type, resp.TransactionID, from)
	if resp.TransactionID != want {
		e.log.Debugf("<< discarding response with unmatched transaction id")
		return nil, nil
	}
	return resp, nil
}

func (e *Engine) isLocalAddress(ip net.IP) (bool, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return false, errors.Wrap(err, "discovery: enumerate local interfaces")
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ipnet.IP.Equal(ip) {
			return true, nil
		}
	}
	return false, nil
}

func sameAddress(a, b stun3489.Address) bool {
	return a.IP.Equal(b.IP) && a.Port == b.Port
}
