package enum

type AuthResult string

const (
	AuthResultPass        AuthResult = "pass"
	AuthResultFail        AuthResult = "fail"
	AuthResultNeutral     AuthResult = "neutral"
	AuthResultNone        AuthResult = "none"
	AuthResultUnspecified AuthResult = "unspecified"
)

func (t AuthResult) String() string {
	return string(t)
}

// ParseAuthResult maps a raw policy_evaluated value to an AuthResult.
// Anything outside the known set degrades to unspecified.
func ParseAuthResult(raw string) AuthResult {
	switch AuthResult(raw) {
	case AuthResultPass, AuthResultFail, AuthResultNeutral, AuthResultNone:
		return AuthResult(raw)
	default:
		return AuthResultUnspecified
	}
}

type Disposition string

const (
	DispositionNone       Disposition = "none"
	DispositionQuarantine Disposition = "quarantine"
	DispositionReject     Disposition = "reject"
)

func (t Disposition) String() string {
	return string(t)
}

func ParseDisposition(raw string) Disposition {
	switch Disposition(raw) {
	case DispositionQuarantine, DispositionReject:
		return Disposition(raw)
	default:
		return DispositionNone
	}
}

type InvalidReason string

const (
	InvalidMalformedXML      InvalidReason = "malformed_xml"
	InvalidWrongRootElement  InvalidReason = "wrong_root_element"
	InvalidMissingSection    InvalidReason = "missing_required_section"
	InvalidOversized         InvalidReason = "oversized"
	InvalidDecodeFailed      InvalidReason = "decode_failed"
	InvalidNormalizeFailed   InvalidReason = "normalize_failed"
	InvalidAttachmentSkipped InvalidReason = "attachment_skipped"
)

func (t InvalidReason) String() string {
	return string(t)
}

type EntityType string

const (
	REPORT_BATCH EntityType = "REPORT_BATCH"
	DMARC_REPORT EntityType = "DMARC_REPORT"
)

func (t EntityType) String() string {
	return string(t)
}
