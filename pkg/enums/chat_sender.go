package enums

import "fmt"

// ChatSender identifies who authored a live-chat message.
type ChatSender string

const (
	ChatSenderUser    ChatSender = "user"
	ChatSenderSupport ChatSender = "support"
)

func (s ChatSender) String() string { return string(s) }

// IsValid reports whether the value is a known ChatSender.
func (s ChatSender) IsValid() bool {
	return s == ChatSenderUser || s == ChatSenderSupport
}

// ParseChatSender converts raw input into a ChatSender.
func ParseChatSender(value string) (ChatSender, error) {
	if sender := ChatSender(value); sender.IsValid() {
		return sender, nil
	}
	return "", fmt.Errorf("invalid chat sender %q", value)
}
