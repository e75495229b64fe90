// Package gitauth bridges a generic credential configuration into the
// credential requests a git HTTPS transport issues during
// authentication.
//
// A Config holds at most one of username+password or token. The
// Adapter answers username, password, and password-prompt requests
// from the resolved pair; a token is presented as the username with an
// empty password. The adapter is strictly non-interactive and never
// logs secret values.
package gitauth
