package main

import "github.com/charmbracelet/bubbles/key"

// keyMap holds the wizard bindings. Which ones apply depends on the step.
type keyMap struct {
	Submit    key.Binding
	Back      key.Binding
	NextField key.Binding
	PrevField key.Binding

	SignUp key.Binding
	Social key.Binding
	Forgot key.Binding
	Terms  key.Binding
	Method key.Binding
	Resend key.Binding
	Skip   key.Binding
	Hide   key.Binding
	Logout key.Binding
	Quit   key.Binding
}

var defaultKeyMap = keyMap{
	Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
	Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	NextField: key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
	PrevField: key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "previous field")),

	SignUp: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "create account")),
	Social: key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("ctrl+g", "continue with google")),
	Forgot: key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("ctrl+f", "forgot password")),
	Terms:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "toggle terms")),
	Method: key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "totp/sms")),
	Resend: key.NewBinding(key.WithKeys("ctrl+r"), key.WithHelp("ctrl+r", "resend code")),
	Skip:   key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "skip")),
	Hide:   key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "hide notice")),
	Logout: key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "log out")),
	Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
}
