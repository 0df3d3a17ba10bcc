package message

import (
	"fmt"
	"time"
)

// replyClock is swapped in tests.
var replyClock = time.Now

// BuildTextReply renders the plaintext text-reply XML sent back in the
// webhook response. toUser is the message sender's openid, fromUser the
// official-account id.
func BuildTextReply(toUser, fromUser, content string) string {
	return fmt.Sprintf(`<xml>
<ToUserName><![CDATA[%s]]></ToUserName>
<FromUserName><![CDATA[%s]]></FromUserName>
<CreateTime>%d</CreateTime>
<MsgType><![CDATA[text]]></MsgType>
<Content><![CDATA[%s]]></Content>
</xml>`, toUser, fromUser, replyClock().Unix(), content)
}
