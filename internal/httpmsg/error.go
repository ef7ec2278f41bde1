package httpmsg

// Kind tags a ParseError the way the original wasmdev_server::http::error
// taxonomy did: Utf8Error / IntError / FormatError / IncompleteError, plus
// the request-level UnsupportedReqTypeError / UnsupportedVersionError.
type Kind int

const (
	KindUTF8 Kind = iota
	KindInt
	KindFormat
	KindIncomplete
	KindUnsupportedMethod
	KindUnsupportedVersion
)

func (k Kind) String() string {
	switch k {
	case KindUTF8:
		return "utf8"
	case KindInt:
		return "int"
	case KindFormat:
		return "format"
	case KindIncomplete:
		return "incomplete"
	case KindUnsupportedMethod:
		return "unsupported method"
	case KindUnsupportedVersion:
		return "unsupported version"
	default:
		return "unknown"
	}
}

// ParseError is returned for any malformed request. Connection handling
// treats all of these the same way: log at debug level, close the
// connection without responding (§7).
type ParseError struct {
	Kind Kind
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Msg == "" {
		return "parse error: " + e.Kind.String()
	}
	return "parse error (" + e.Kind.String() + "): " + e.Msg
}
