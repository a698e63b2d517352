package avdtp

func (c ErrorCode) String() string {
	switch c {
	case ErrBadHeaderFormat:
		return "bad_header_format"
	case ErrBadLength:
		return "bad_length"
	case ErrBadAcpSEID:
		return "bad_acp_seid"
	case ErrSEPInUse:
		return "sep_in_use"
	case ErrSEPNotInUse:
		return "sep_not_in_use"
	case ErrBadServCategory:
		return "bad_service_category"
	case ErrBadPayloadFormat:
		return "bad_payload_format"
	case ErrNotSupportedCmd:
		return "not_supported_command"
	case ErrInvalidCapabilities:
		return "invalid_capabilities"
	case ErrBadRecoveryType:
		return "bad_recovery_type"
	case ErrBadMediaTransportFormat:
		return "bad_media_transport_format"
	case ErrBadRecoveryFormat:
		return "bad_recovery_format"
	case ErrBadRohcFormat:
		return "bad_rohc_format"
	case ErrBadCPFormat:
		return "bad_content_protection_format"
	case ErrBadMultiplexingFormat:
		return "bad_multiplexing_format"
	case ErrUnsupportedConfiguration:
		return "unsupported_configuration"
	case ErrBadState:
		return "bad_state"
	default:
		return "unknown_avdtp_error"
	}
}
