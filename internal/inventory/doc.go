// Package inventory loads installed MCP servers from a YAML file. The CLI
// uses it in place of the platform's database.
//
//	servers:
//	  - id: github-tools
//	    catalogId: github
//	    ownerId: user-1
//	    teamId: team-a
//	    secretId: github-secret
//	    serverType: local
//	    registryCredential:
//	      registry: ghcr.io
//	      username: bot
//	      password: s3cret
//	catalog:
//	  github:
//	    image: ghcr.io/example/github-mcp:1.2.0
//	    env:
//	      - key: GITHUB_TOKEN
//	        type: secret
//	        promptOnInstallation: true
//	secrets:
//	  github-secret:
//	    GITHUB_TOKEN: ghp_example
package inventory
