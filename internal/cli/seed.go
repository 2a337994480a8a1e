package cli

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/spf13/cobra"

	"github.com/vendorpulse/vendorpulse/internal/engine"
	"github.com/vendorpulse/vendorpulse/internal/model"
	"github.com/vendorpulse/vendorpulse/internal/service"
	"github.com/vendorpulse/vendorpulse/internal/store"
)

//go:embed schema.cue
var seedSchema string

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database string
}

// seedVendor mirrors the #Vendor shape in schema.cue.
type seedVendor struct {
	Name           string      `json:"name"`
	ContactDetails string      `json:"contact_details"`
	Address        string      `json:"address"`
	VendorCode     string      `json:"vendor_code"`
	Orders         []seedOrder `json:"orders"`
}

type seedOrder struct {
	PONumber      string           `json:"po_number"`
	DeliveryDate  string           `json:"delivery_date"`
	IssueDate     string           `json:"issue_date"`
	Quantity      int              `json:"quantity"`
	Items         []map[string]any `json:"items"`
	Status        string           `json:"status"`
	QualityRating *float64         `json:"quality_rating"`
	Acknowledge   bool             `json:"acknowledge"`
}

// seedSummary is the payload reported after a successful seed.
type seedSummary struct {
	Vendors int `json:"vendors"`
	Orders  int `json:"orders"`
}

func (s seedSummary) String() string {
	return fmt.Sprintf("Seeded %d vendors and %d purchase orders.", s.Vendors, s.Orders)
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <seed-file>",
		Short: "Load vendors and purchase orders from a CUE seed file",
		Long: `Validate a CUE seed file against the built-in schema and replay its
vendors and purchase orders through the tracking engine.

Orders are created pending and then driven through their declared state
(acknowledgment, quality rating, status), so vendor metrics come out
exactly as they would from live traffic.

Example:
  vendorpulse seed --db ./vendorpulse.db ./seed.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSeed(opts *SeedOptions, seedPath string, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(seedPath); err != nil {
		_ = out.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "seed file not found", err)
	}

	vendors, err := loadSeedFile(seedPath)
	if err != nil {
		_ = out.Error(ErrCodeInvalidSeed, err.Error(), nil)
		return WrapExitError(ExitFailure, "invalid seed file", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = out.Error(ErrCodeStoreError, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	eng := engine.New(st, engine.SystemClock{}, nil)
	svc := service.New(st, eng)

	summary, err := applySeed(cmd.Context(), svc, vendors, out)
	if err != nil {
		_ = out.Error(ErrCodeStoreError, err.Error(), nil)
		return WrapExitError(ExitFailure, "seed failed", err)
	}

	return out.Success(summary)
}

// loadSeedFile validates the file against the embedded schema and decodes it.
func loadSeedFile(path string) ([]seedVendor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	ctx := cuecontext.New()
	schema := ctx.CompileString(seedSchema)
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	value := ctx.CompileBytes(data)
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("seed file rejected by schema: %w", err)
	}

	var vendors []seedVendor
	if err := unified.LookupPath(cue.ParsePath("vendors")).Decode(&vendors); err != nil {
		return nil, fmt.Errorf("decode vendors: %w", err)
	}
	if len(vendors) == 0 {
		return nil, fmt.Errorf("seed file declares no vendors")
	}
	return vendors, nil
}

// applySeed replays the seed through the service layer so every engine rule
// fires the same way it would for live updates.
func applySeed(ctx context.Context, svc *service.Service, vendors []seedVendor, out *OutputFormatter) (*seedSummary, error) {
	summary := &seedSummary{}

	for _, sv := range vendors {
		v, err := svc.CreateVendor(ctx, service.VendorInput{
			Name:           sv.Name,
			ContactDetails: sv.ContactDetails,
			Address:        sv.Address,
			VendorCode:     sv.VendorCode,
		})
		if err != nil {
			return nil, fmt.Errorf("create vendor %q: %w", sv.Name, err)
		}
		out.VerboseLog("created vendor %s (%s)", v.Name, v.ID)
		summary.Vendors++

		for i, so := range sv.Orders {
			if err := applySeedOrder(ctx, svc, v.ID, so); err != nil {
				return nil, fmt.Errorf("vendor %q order %d: %w", sv.Name, i, err)
			}
			summary.Orders++
		}
	}
	return summary, nil
}

func applySeedOrder(ctx context.Context, svc *service.Service, vendorID string, so seedOrder) error {
	delivery, err := time.Parse(time.RFC3339, so.DeliveryDate)
	if err != nil {
		return fmt.Errorf("parse delivery_date: %w", err)
	}

	in := service.OrderInput{
		VendorID:     vendorID,
		PONumber:     so.PONumber,
		DeliveryDate: delivery,
		Quantity:     so.Quantity,
	}
	if so.IssueDate != "" {
		issue, err := time.Parse(time.RFC3339, so.IssueDate)
		if err != nil {
			return fmt.Errorf("parse issue_date: %w", err)
		}
		in.IssueDate = issue
	}
	if len(so.Items) > 0 {
		items, err := json.Marshal(so.Items)
		if err != nil {
			return fmt.Errorf("encode items: %w", err)
		}
		in.Items = items
	}

	po, err := svc.CreatePurchaseOrder(ctx, in)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	if so.Acknowledge {
		if _, err := svc.AcknowledgePurchaseOrder(ctx, po.ID); err != nil {
			return fmt.Errorf("acknowledge order: %w", err)
		}
	}

	if so.QualityRating != nil {
		if _, err := svc.UpdatePurchaseOrder(ctx, po.ID, service.OrderPatch{QualityRating: so.QualityRating}); err != nil {
			return fmt.Errorf("set quality rating: %w", err)
		}
	}

	if so.Status != "" && so.Status != string(model.StatusPending) {
		status := model.Status(so.Status)
		if _, err := svc.UpdatePurchaseOrder(ctx, po.ID, service.OrderPatch{Status: &status}); err != nil {
			return fmt.Errorf("set status: %w", err)
		}
	}
	return nil
}
