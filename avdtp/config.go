package avdtp

import "github.com/rigado/btstack"

// PSC (protocol service capability) mask bits, one per Category.
const (
	pscTrans    = 1 << CatMediaTransport
	pscReport   = 1 << CatReporting
	pscRecov    = 1 << CatRecovery
	pscProtect  = 1 << CatContentProtection
	pscHdrcmp   = 1 << CatHeaderCompression
	pscMux      = 1 << CatMultiplexing
	pscCodec    = 1 << CatCodec
	pscDelayRpt = 1 << CatDelayReporting
)

// legPSC is the subset of capabilities reported by the legacy Get
// Capabilities response (no recovery/header-compression/multiplexing).
const legPSC = pscTrans | pscReport | pscProtect | pscCodec | pscDelayRpt

// SepConfig is the set of configuration/capability elements attached to a
// stream endpoint, ported from AvdtpSepConfig.
type SepConfig struct {
	PSCMask       uint16
	RecoveryType  byte
	RecoveryMRWS  byte
	RecoveryMNMP  byte
	HeaderCompMask byte
	CodecInfo     []byte // element-length-prefixed, element [0] is the payload length
	ProtectInfo   []byte // concatenation of length-prefixed content-protection blobs
}

// EncodeConfig writes cfg's configuration elements in the fixed order the
// teacher's avdt_msg_bld_cfg uses: media transport, reporting, codec,
// content protection, delay reporting. Recovery/header-compression/
// multiplexing are accepted on decode but this implementation never builds
// them outbound, matching avdt_msg_bld_cfg's own comment ("for now, just
// build media transport, codec, and content protection, and multiplexing").
func EncodeConfig(cfg *SepConfig) []byte {
	var out []byte

	if cfg.PSCMask&pscTrans != 0 {
		out = append(out, byte(CatMediaTransport), 0)
	}
	if cfg.PSCMask&pscReport != 0 {
		out = append(out, byte(CatReporting), 0)
	}
	if len(cfg.CodecInfo) > 0 {
		n := int(cfg.CodecInfo[0]) + 1
		if n > len(cfg.CodecInfo) {
			n = len(cfg.CodecInfo)
		}
		out = append(out, byte(CatCodec))
		out = append(out, cfg.CodecInfo[:n]...)
	}
	if len(cfg.ProtectInfo) > 0 {
		out = append(out, byte(CatContentProtection))
		out = append(out, cfg.ProtectInfo...)
	}
	if cfg.PSCMask&pscDelayRpt != 0 {
		out = append(out, byte(CatDelayReporting), 0)
	}
	return out
}

// sig identifies which command is being parsed, so unknown service
// categories are rejected for SetConfig/Reconfig but silently skipped for
// GetCap/GetAllCap (avdt_msg_prs_cfg's sig_id parameter).
func DecodeConfig(p []byte, sig Signal) (*SepConfig, error) {
	cfg := &SepConfig{}

	for len(p) > 0 {
		if len(p) < 2 {
			return nil, malformed(ErrBadLength, "truncated configuration element")
		}
		elem := Category(p[0])
		elemLen := int(p[1])
		p = p[2:]

		if elem == 0 || elem > catMaxCur {
			if sig == SigSetConfig || sig == SigReconfig {
				return nil, malformed(ErrBadServCategory, "unknown service category")
			}
			if elemLen > len(p) {
				return nil, malformed(ErrBadLength, "unknown category length overruns buffer")
			}
			p = p[elemLen:]
			continue
		}

		if elemLen < catLenMin[elem] || elemLen > catLenMax[elem] {
			return nil, malformed(catLenErr[elem], elem.String()+": bad element length")
		}
		if elemLen > len(p) {
			return nil, malformed(ErrBadLength, elem.String()+": element overruns buffer")
		}

		cfg.PSCMask |= 1 << elem

		switch elem {
		case CatRecovery:
			cfg.RecoveryType, cfg.RecoveryMRWS, cfg.RecoveryMNMP = p[0], p[1], p[2]
		case CatContentProtection:
			cfg.PSCMask &^= pscProtect
			block := append([]byte{byte(elemLen)}, p[:elemLen]...)
			cfg.ProtectInfo = append(cfg.ProtectInfo, block...)
		case CatHeaderCompression:
			cfg.HeaderCompMask = p[0]
		case CatCodec:
			cfg.PSCMask &^= pscCodec
			cfg.CodecInfo = append([]byte{byte(elemLen)}, p[:elemLen]...)
		case CatDelayReporting:
			// presence alone is the signal; nothing to store.
		}
		p = p[elemLen:]
	}
	return cfg, nil
}

func (c Category) String() string {
	switch c {
	case CatMediaTransport:
		return "media_transport"
	case CatReporting:
		return "reporting"
	case CatRecovery:
		return "recovery"
	case CatContentProtection:
		return "content_protection"
	case CatHeaderCompression:
		return "header_compression"
	case CatMultiplexing:
		return "multiplexing"
	case CatCodec:
		return "codec"
	case CatDelayReporting:
		return "delay_reporting"
	default:
		return "unknown_category"
	}
}

func malformed(code ErrorCode, msg string) error {
	return btstack.NewError(btstack.KindMalformedPdu, byte(code), msg)
}
