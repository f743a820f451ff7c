package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"v2desk/internal/logger"

	"gopkg.in/yaml.v3"
)

// ErrMalformed is returned when the input is not a structured object at all.
var ErrMalformed = errors.New("malformed profile document")

// Document keys, spelled as the editor writes them.
const (
	keyProtocol             = "protocol"
	keyServerName           = "serverName"
	keyServerAddr           = "serverAddr"
	keyServerPort           = "serverPort"
	keyAutoConnect          = "autoConnect"
	keyID                   = "id"
	keyAlterID              = "alterId"
	keyLevel                = "level"
	keySecurity             = "security"
	keyEncryption           = "encryption"
	keyPassword             = "password"
	keyNetwork              = "network"
	keyNetworkSecurity      = "networkSecurity"
	keyAllowInsecure        = "allowInsecure"
	keyTCPHeaderType        = "tcpHeaderType"
	keyKCPMTU               = "kcpMtu"
	keyKCPTTI               = "kcpTti"
	keyKCPUpLink            = "kcpUpLink"
	keyKCPDownLink          = "kcpDownLink"
	keyKCPCongestion        = "kcpCongestion"
	keyKCPReadBuffer        = "kcpReadBuffer"
	keyKCPWriteBuffer       = "kcpWriteBuffer"
	keyPacketHeader         = "packetHeader"
	keyNetworkPath          = "networkPath"
	keyDomainSocketFilePath = "domainSocketFilePath"
	keyQUICSecurity         = "quicSecurity"
	keyQUICKey              = "quicKey"
)

// Decode parses a JSON or YAML object into a ServerProfile.
// Only a document that is not an object fails; missing or mistyped fields
// fall back to their defaults and are reported in Issues.
func Decode(data []byte) (*ServerProfile, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: document is empty", ErrMalformed)
	}
	return FromMap(doc), nil
}

// parseDocument reads JSON objects with encoding/json, which accepts escapes
// such as \/ and repeated keys (last wins) that YAML rejects. Anything else,
// including YAML flow mappings, goes through yaml.v3.
func parseDocument(data []byte) (map[string]interface{}, error) {
	var doc map[string]interface{}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		err := yaml.Unmarshal(data, &doc)
		return doc, err
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	jsonErr := dec.Decode(&doc)
	if jsonErr == nil && dec.More() {
		jsonErr = errors.New("unexpected data after object")
	}
	if jsonErr == nil {
		return doc, nil
	}

	doc = nil
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}
	return nil, jsonErr
}

// FromMap coerces an already-parsed document.
func FromMap(doc map[string]interface{}) *ServerProfile {
	d := &decoder{doc: doc}

	p := &ServerProfile{
		Protocol:    ParseProtocol(d.str(keyProtocol)),
		ServerName:  d.str(keyServerName),
		ServerAddr:  d.str(keyServerAddr),
		ServerPort:  d.port(keyServerPort),
		AutoConnect: d.boolean(keyAutoConnect),

		ID:       d.str(keyID),
		AlterID:  d.integer(keyAlterID),
		Level:    d.integer(keyLevel),
		Security: d.str(keySecurity),

		Encryption: d.str(keyEncryption),
		Password:   d.str(keyPassword),

		Network:         Network(d.str(keyNetwork)),
		NetworkSecurity: d.str(keyNetworkSecurity),
		AllowInsecure:   d.boolean(keyAllowInsecure),

		TCPHeaderType: d.str(keyTCPHeaderType),
		KCP: KCPOptions{
			MTU:              d.integer(keyKCPMTU),
			TTI:              d.integer(keyKCPTTI),
			UplinkCapacity:   d.integer(keyKCPUpLink),
			DownlinkCapacity: d.integer(keyKCPDownLink),
			Congestion:       d.boolean(keyKCPCongestion),
			ReadBufferSize:   d.integer(keyKCPReadBuffer),
			WriteBufferSize:  d.integer(keyKCPWriteBuffer),
		},
		PacketHeader:         d.str(keyPacketHeader),
		NetworkPath:          d.str(keyNetworkPath),
		DomainSocketFilePath: d.str(keyDomainSocketFilePath),
		QUICSecurity:         d.str(keyQUICSecurity),
		QUICKey:              d.str(keyQUICKey),
	}

	if p.Network == "" {
		p.Network = TCP
	}

	p.Issues = d.issues
	for _, issue := range p.Issues {
		logger.Log.Warnf("Profile [Name=%s]: replaced %s with default", p.ServerName, issue)
	}
	return p
}

type decoder struct {
	doc    map[string]interface{}
	issues []Issue
}

func (d *decoder) lookup(key string) (interface{}, bool) {
	v, ok := d.doc[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func (d *decoder) flag(key string, v interface{}, reason string) {
	d.issues = append(d.issues, Issue{Field: key, Value: v, Reason: reason})
}

func (d *decoder) str(key string) string {
	v, ok := d.lookup(key)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	}
	d.flag(key, v, "not a scalar")
	return ""
}

// integer accepts integral numbers or decimal text. Negative values are
// rejected; every integer field in a profile is a count or size.
func (d *decoder) integer(key string) int {
	v, ok := d.lookup(key)
	if !ok {
		return 0
	}

	var n int64
	switch t := v.(type) {
	case int:
		n = int64(t)
	case int64:
		n = t
	case uint64:
		if t > math.MaxInt32 {
			d.flag(key, v, "out of range")
			return 0
		}
		n = int64(t)
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) {
			d.flag(key, v, "not an integer")
			return 0
		}
		n = int64(t)
	case json.Number:
		parsed, err := strconv.ParseInt(t.String(), 10, 64)
		if err != nil {
			f, ferr := t.Float64()
			if ferr != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
				d.flag(key, v, "not an integer")
				return 0
			}
			parsed = int64(f)
		}
		n = parsed
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			d.flag(key, v, "not a number")
			return 0
		}
		n = parsed
	default:
		d.flag(key, v, "not a number")
		return 0
	}

	if n < 0 {
		d.flag(key, v, "negative")
		return 0
	}
	if n > math.MaxInt32 {
		d.flag(key, v, "out of range")
		return 0
	}
	return int(n)
}

func (d *decoder) port(key string) uint16 {
	n := d.integer(key)
	if n > math.MaxUint16 {
		d.flag(key, n, "port out of range")
		return 0
	}
	return uint16(n)
}

func (d *decoder) boolean(key string) bool {
	v, ok := d.lookup(key)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return false
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			d.flag(key, v, "not a boolean")
			return false
		}
		return b
	}
	d.flag(key, v, "not a boolean")
	return false
}
