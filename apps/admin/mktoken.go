package main

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/chuo/apps/api/echo"
	"github.com/trezcool/chuo/core"
)

type tokenActor struct {
	ID    string   `json:"id" validate:"required"`
	Email string   `json:"email" validate:"omitempty,email"`
	Roles []string `json:"roles" validate:"required,min=1,allroles"`
}

func (ta *tokenActor) Validate(validate *validator.Validate) error {
	return validate.Struct(ta)
}

// mktoken issues a signed JWT for the given actor. Meant for dev and
// ops tooling; production tokens come from the identity provider.
func (cli *commandLine) mktoken(id, name, email string, roles []string) error {
	validate, _ := core.NewValidator()
	ta := tokenActor{ID: id, Email: email, Roles: roles}
	if err := ta.Validate(validate); err != nil {
		return err
	}

	actor := core.Actor{ID: id, Name: name, Email: email, Roles: roles}
	claims := echoapi.GetActorClaims(actor, cli.conf)
	token, err := echoapi.GenerateToken(claims, cli.conf)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
