package tui

import (
	"strings"

	"campwatch/pkg/chain"

	"github.com/charmbracelet/huh"
)

func newContractForm(value *string) *huh.Form {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Token contract").
				Description("No contract_address configured. Enter the token mint to watch.").
				Value(value).
				Placeholder("KTtNxsFzGJBUDCLT5c6k3zKtRacQ2LLzivZ3CdCbonk").
				Validate(func(s string) error {
					return chain.ValidateAddress(strings.TrimSpace(s))
				}),
		),
	).WithTheme(huh.ThemeCatppuccin())
	return form
}
