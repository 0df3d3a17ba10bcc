// Package message holds the typed model for inbound platform messages
// and the plaintext reply builders.
package message

// Message type values as they appear on the wire.
const (
	TypeText     = "text"
	TypeVoice    = "voice"
	TypeImage    = "image"
	TypeLocation = "location"
	TypeLink     = "link"
	TypeEvent    = "event"
)

const EventSubscribe = "subscribe"

// Message is a parsed inbound platform message. FromUserName (the
// openid) is the correlation key for bindings. Only FromUserName,
// ToUserName and MsgType are required; the rest are type-dependent and
// parsed permissively.
type Message struct {
	FromUserName string `xml:"FromUserName"`
	ToUserName   string `xml:"ToUserName"`
	MsgType      string `xml:"MsgType"`
	CreateTime   int64  `xml:"CreateTime"`
	MsgId        string `xml:"MsgId"`

	Content string `xml:"Content"`
	Event   string `xml:"Event"`

	// voice
	Recognition string `xml:"Recognition"`
	MediaId     string `xml:"MediaId"`

	// image
	PicUrl string `xml:"PicUrl"`

	// location
	LocationX string `xml:"Location_X"`
	LocationY string `xml:"Location_Y"`
	Label     string `xml:"Label"`

	// link
	Title       string `xml:"Title"`
	Description string `xml:"Description"`
	Url         string `xml:"Url"`
}

func (m *Message) IsEvent() bool {
	return m.MsgType == TypeEvent
}

func (m *Message) IsText() bool {
	return m.MsgType == TypeText
}
