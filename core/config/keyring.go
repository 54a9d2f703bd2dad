package config

import "github.com/zalando/go-keyring"

// defaultKeyringUser is used when token_keyring.user is empty.
const defaultKeyringUser = "bot_token"

func keyringToken(service, user string) (string, error) {
	if user == "" {
		user = defaultKeyringUser
	}
	return keyring.Get(service, user)
}
