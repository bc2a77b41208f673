package conversation

// Role identifies who produced a turn.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Part is a single content unit within a turn: either text, or inline
// bytes tagged with a mime type (image or audio).
type Part struct {
	Text string
	Data []byte
	Mime string
}

// Turn represents one message exchange unit stored in history.
type Turn struct {
	Role  string
	Parts []Part
}

// TextPart creates a text part.
func TextPart(text string) Part {
	return Part{Text: text}
}

// BlobPart creates an inline-bytes part tagged with a mime type.
func BlobPart(data []byte, mime string) Part {
	return Part{Data: data, Mime: mime}
}

// IsBlob reports whether the part carries inline bytes rather than text.
func (p Part) IsBlob() bool {
	return len(p.Data) > 0
}

// UserTurn creates a user-role turn from parts.
func UserTurn(parts ...Part) Turn {
	return Turn{Role: RoleUser, Parts: parts}
}

// ModelTurn creates a model-role turn with a single text part.
func ModelTurn(text string) Turn {
	return Turn{Role: RoleModel, Parts: []Part{TextPart(text)}}
}
