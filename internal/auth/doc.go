// package auth implements the Spotify OAuth2 Authorization-Code-with-PKCE
// flow: code challenge generation, the loopback callback listener, durable
// token storage, and the token lifecycle manager that serializes refreshes.
package auth
