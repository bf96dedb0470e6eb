package domain

type BootstrapData struct {
	AdminEmail        string
	AdminDisplayName  string
	AdminPassword     string
	ClientName        string
	ClientRedirectURI string
	ClientScopes      []string
	Roles             []RoleDefinition
}

type RoleDefinition struct {
	Name   string
	Scopes []string
}
