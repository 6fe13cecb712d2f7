package compiler

import (
	"fmt"
	"math/rand/v2"

	"github.com/Norgate-AV/lazydi/internal/values"
)

type User struct {
	Username string
	Password string
}

type Service struct {
	Name       string
	Admin      *User
	SecondUser *User
}

type ExampleContainer struct {
	values.Accessor
}

func NewExampleContainer(cfg values.Source) *ExampleContainer {
	return &ExampleContainer{Accessor: values.NewAccessor(cfg)}
}

func (c *ExampleContainer) NewUser(username, password string) *User {
	if username == "" {
		username = fmt.Sprintf("user_%d", rand.IntN(90000)+10000)
	}

	if password == "" {
		password, _ = c.LookupString("comically_bad_default_password")
	}

	return &User{Username: username, Password: password}
}

func (c *ExampleContainer) GetService() *Service {
	return &Service{
		Admin:      c.NewUser("admin", "qwerty123"),
		SecondUser: c.NewUser("", ""),
	}
}

func (c *ExampleContainer) GetSecondService(name *string) *Service {
	if name == nil {
		return &Service{Name: "default"}
	}

	return &Service{Name: *name}
}

// exampleContainerSource declares ExampleContainer the way a user package would
const exampleContainerSource = `package compiler

import "github.com/Norgate-AV/lazydi/internal/values"

type Service struct{}

type ExampleContainer struct {
	values.Accessor
}

func (c *ExampleContainer) NewUser(username, password string) *User { return nil }

func (c *ExampleContainer) GetService() *Service { return &Service{} }

func (c *ExampleContainer) GetSecondService(name *string) *Service { return &Service{} }
`

// Two parameters
type FaultyContainer1 struct{}

func (FaultyContainer1) GetService(name *string, settings map[string]any) *Service { return nil }

// No return type
type FaultyContainer2 struct{}

func (FaultyContainer2) GetService(name *string) {}

// Parameter is not a name
type FaultyContainer3 struct{}

func (FaultyContainer3) GetService(config map[string]any) *Service { return nil }

// Two return types
type FaultyContainer4 struct{}

func (FaultyContainer4) GetService() (*Service, *User) { return nil, nil }

// Builtin return type
type FaultyContainer5 struct{}

func (FaultyContainer5) GetService() string { return "disallowed" }

// Several broken services next to a valid one
type BrokenContainer struct{}

func (BrokenContainer) GetAlpha() string { return "" }
func (BrokenContainer) GetBeta(a, b *string) *User { return nil }
func (BrokenContainer) GetGamma() *Service { return nil }
func (BrokenContainer) GetDelta(tags ...string) any { return nil }
