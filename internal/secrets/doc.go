// Package secrets manages the two kinds of secrets MCP servers depend on.
//
// Generic secrets hold one installation's environment values and are owned
// by exactly one server. Registry credential secrets ("regcreds") are keyed
// by registry host and username and can be shared: every user is recorded in
// the mcp-server/referenced-by annotation and a regcred is only deleted once
// its last user releases it.
//
// Regcred listing is deny-by-default: an admin sees every regcred, a team
// member sees those labelled with one of their teams, anyone else sees none.
package secrets
