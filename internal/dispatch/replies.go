package dispatch

import "fmt"

const welcomeReply = `👋 欢迎关注！

这是一个任务桥接服务。请发送以下指令绑定你的处理端点：

bind <你的端点地址> <Token>

例如：
bind https://my-endpoint.example.com/webhook abc123

绑定后，你可以直接发送消息与你的端点对话。

其他指令：
• unbind - 解除绑定`

const bindFirstReply = `👋 请先绑定你的处理端点。

发送格式：
bind <你的端点地址> <Token>

例如：
bind https://my-endpoint.example.com/webhook abc123`

const invalidURLReply = "❌ 无效的 URL 格式，请检查后重试。"

const unboundReply = `✅ 已解除绑定。

你可以随时使用 bind 指令重新绑定新的处理端点。`

const processingReply = "⏳ 正在处理中，请稍候..."

func boundReply(endpoint string) string {
	return fmt.Sprintf(`✅ 绑定成功！

你的端点地址：%s

现在可以直接发送消息与你的端点对话了。

提示：发送 unbind 可以解除绑定。`, endpoint)
}
