package profile

import (
	"encoding/json"
	"strconv"
)

// Document returns the flat editor form of p. Numbers are written as decimal
// text and empty optional fields are left out, which Decode reads back to the
// same profile.
func (p *ServerProfile) Document() map[string]interface{} {
	doc := map[string]interface{}{
		keyProtocol:    string(p.Protocol),
		keyServerName:  p.ServerName,
		keyServerAddr:  p.ServerAddr,
		keyServerPort:  strconv.Itoa(int(p.ServerPort)),
		keyAutoConnect: p.AutoConnect,
	}

	putStr := func(key, v string) {
		if v != "" {
			doc[key] = v
		}
	}
	putInt := func(key string, v int) {
		if v != 0 {
			doc[key] = strconv.Itoa(v)
		}
	}
	putBool := func(key string, v bool) {
		if v {
			doc[key] = true
		}
	}

	putStr(keyID, p.ID)
	putInt(keyAlterID, p.AlterID)
	putInt(keyLevel, p.Level)
	putStr(keySecurity, p.Security)
	putStr(keyEncryption, p.Encryption)
	putStr(keyPassword, p.Password)

	doc[keyNetwork] = string(p.Network)
	putStr(keyNetworkSecurity, p.NetworkSecurity)
	putBool(keyAllowInsecure, p.AllowInsecure)
	putStr(keyTCPHeaderType, p.TCPHeaderType)
	putInt(keyKCPMTU, p.KCP.MTU)
	putInt(keyKCPTTI, p.KCP.TTI)
	putInt(keyKCPUpLink, p.KCP.UplinkCapacity)
	putInt(keyKCPDownLink, p.KCP.DownlinkCapacity)
	putBool(keyKCPCongestion, p.KCP.Congestion)
	putInt(keyKCPReadBuffer, p.KCP.ReadBufferSize)
	putInt(keyKCPWriteBuffer, p.KCP.WriteBufferSize)
	putStr(keyPacketHeader, p.PacketHeader)
	putStr(keyNetworkPath, p.NetworkPath)
	putStr(keyDomainSocketFilePath, p.DomainSocketFilePath)
	putStr(keyQUICSecurity, p.QUICSecurity)
	putStr(keyQUICKey, p.QUICKey)

	return doc
}

// Encode serializes the editor form as JSON.
func (p *ServerProfile) Encode() ([]byte, error) {
	return json.Marshal(p.Document())
}
