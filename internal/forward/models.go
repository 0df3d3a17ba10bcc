package forward

// TaskRequest is the JSON job description posted to the bound remote
// endpoint.
type TaskRequest struct {
	Task        string   `json:"task"`
	CallbackURL string   `json:"callback_url"`
	Metadata    Metadata `json:"metadata"`
}

type Metadata struct {
	OpenID    string `json:"openid"`
	MsgType   string `json:"msg_type"`
	MsgID     string `json:"msg_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}
