package tokens

// FileConfig represents the top-level structure of the token file
//
//	users:
//	  - id: alice
//	    tokens:
//	      - ${ALICE_TOKEN}
type FileConfig struct {
	Users []User `yaml:"users"`
}

// User binds an owner id to its bearer tokens
type User struct {
	ID     string   `yaml:"id"`
	Tokens []string `yaml:"tokens"`
}
