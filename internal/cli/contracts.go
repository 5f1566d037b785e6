package cli

import (
	"github.com/spf13/cobra"

	"github.com/tuespacio/tuespacio/internal/contract"
	"github.com/tuespacio/tuespacio/internal/user"
)

func newContractsCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "List your rental contracts",
		Long: "Owners see contracts on their listings, tenants see their own contracts and " +
			"administrators see every contract in a status (active by default).",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := contract.ParseStatus(status)
			if err != nil {
				return err
			}
			return runContracts(cmd, st)
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "active, inactive or finished")

	return cmd
}

func runContracts(cmd *cobra.Command, status contract.Status) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	u, err := a.requireUser()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var contracts []*contract.Contract
	switch u.Role {
	case user.RoleOwner:
		contracts, err = a.contracts.ListByOwner(ctx, u.ID, status)
	case user.RoleAdmin:
		if status == "" {
			status = contract.StatusActive
		}
		contracts, err = a.contracts.ListByStatus(ctx, status)
	default:
		contracts, err = a.contracts.ListByTenant(ctx, u.ID)
		contracts = withStatus(contracts, status)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, contracts)
	}
	return printContractTable(out, contracts)
}

// withStatus keeps the contracts in status; an empty status keeps all.
func withStatus(contracts []*contract.Contract, status contract.Status) []*contract.Contract {
	if status == "" {
		return contracts
	}
	out := make([]*contract.Contract, 0, len(contracts))
	for _, c := range contracts {
		if c.Status == status {
			out = append(out, c)
		}
	}
	return out
}
