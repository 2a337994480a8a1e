package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vendorpulse/vendorpulse/internal/engine"
	"github.com/vendorpulse/vendorpulse/internal/model"
	"github.com/vendorpulse/vendorpulse/internal/service"
	"github.com/vendorpulse/vendorpulse/internal/store"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	Database string
	VendorID string
}

// vendorReport is the JSON payload for one vendor's performance.
type vendorReport struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	VendorCode string              `json:"vendor_code"`
	Metrics    model.VendorMetrics `json:"metrics"`
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a vendor performance report",
		Long: `Render the current performance metrics for all vendors, or for a
single vendor with --vendor.

Example:
  vendorpulse report --db ./vendorpulse.db
  vendorpulse report --db ./vendorpulse.db --vendor <id> --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.VendorID, "vendor", "", "report a single vendor by id")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runReport(opts *ReportOptions, cmd *cobra.Command) error {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = out.Error(ErrCodeStoreError, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	eng := engine.New(st, engine.SystemClock{}, nil)
	svc := service.New(st, eng)
	ctx := cmd.Context()

	var vendors []model.Vendor
	if opts.VendorID != "" {
		v, err := svc.GetVendor(ctx, opts.VendorID)
		if err != nil {
			_ = out.Error(ErrCodeNotFound, err.Error(), nil)
			return WrapExitError(ExitFailure, "vendor lookup failed", err)
		}
		vendors = []model.Vendor{*v}
	} else {
		vendors, err = svc.ListVendors(ctx)
		if err != nil {
			_ = out.Error(ErrCodeStoreError, err.Error(), nil)
			return WrapExitError(ExitFailure, "vendor listing failed", err)
		}
	}

	if opts.Format == "json" {
		reports := make([]vendorReport, 0, len(vendors))
		for _, v := range vendors {
			reports = append(reports, vendorReport{
				ID:         v.ID,
				Name:       v.Name,
				VendorCode: v.VendorCode,
				Metrics:    v.Metrics,
			})
		}
		return out.Success(reports)
	}

	fmt.Fprint(cmd.OutOrStdout(), RenderReport(vendors))
	return nil
}

// RenderReport formats vendors as a deterministic text report. IDs are
// omitted so the output is stable across runs with generated identifiers.
func RenderReport(vendors []model.Vendor) string {
	var b strings.Builder
	b.WriteString("Vendor Performance Report\n")
	b.WriteString("=========================\n")

	if len(vendors) == 0 {
		b.WriteString("\nNo vendors.\n")
		return b.String()
	}

	for _, v := range vendors {
		fmt.Fprintf(&b, "\n%s", v.Name)
		if v.VendorCode != "" {
			fmt.Fprintf(&b, " (%s)", v.VendorCode)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "  on-time delivery rate: %.3f\n", v.Metrics.OnTimeDeliveryRate)
		fmt.Fprintf(&b, "  quality rating avg:    %.2f\n", v.Metrics.QualityRatingAvg)
		fmt.Fprintf(&b, "  avg response time:     %.2f h\n", v.Metrics.AverageResponseTime)
		fmt.Fprintf(&b, "  fulfillment rate:      %.2f\n", v.Metrics.FulfillmentRate)
	}
	return b.String()
}
