package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"returnsdesk/internal/export"
	"returnsdesk/internal/models"
	"returnsdesk/internal/storage"
	contextutils "returnsdesk/internal/utils"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func listCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all returns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, principal, err := env.login(ctx)
			if err != nil {
				return err
			}

			returns, err := svc.ListReturns(ctx, principal)
			if err != nil {
				return err
			}
			if len(returns) == 0 {
				fmt.Fprintln(env.Out, "Kayıtlı iade yok.")
				return nil
			}

			tw := tabwriter.NewWriter(env.Out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSİPARİŞ NO\tÜRÜN\tMARKA\tPLATFORM\tSEBEP\tTARİH\tDURUM\tONAYLAYAN\tRESİM\tEKLENDİ")
			for _, r := range returns {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.OrderID, r.Product, r.Brand, r.Platform, r.Reason, r.ReturnDate,
					r.Status.Label(), orDash(r.ApprovedBy.String), orDash(r.ImagePath.String), addedAgo(r.CreatedAt))
			}
			return tw.Flush()
		},
	}
}

func addCmd(env *Env) *cobra.Command {
	var in models.CreateReturnInput
	var imagePath string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a new return",
		Long: `Log a new pending return. Flags left empty are asked for interactively;
platform and reason prompts offer the configured picklists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, principal, err := env.login(ctx)
			if err != nil {
				return err
			}

			if err := env.fillMissing(&in); err != nil {
				return err
			}

			var upload *storage.Upload
			if imagePath != "" {
				f, err := os.Open(imagePath)
				if err != nil {
					return contextutils.WrapErrorf(err, "failed to open image %s", imagePath)
				}
				defer func() { _ = f.Close() }()

				stat, err := f.Stat()
				if err != nil {
					return contextutils.WrapErrorf(err, "failed to stat image %s", imagePath)
				}
				if env.Config.Uploads.MaxBytes > 0 && stat.Size() > env.Config.Uploads.MaxBytes {
					return contextutils.WrapErrorf(contextutils.ErrPayloadTooLarge, "image is %s, limit is %s",
						humanize.IBytes(uint64(stat.Size())), humanize.IBytes(uint64(env.Config.Uploads.MaxBytes)))
				}
				upload = &storage.Upload{Filename: filepath.Base(imagePath), Size: stat.Size(), Body: f}
			}

			ret, err := svc.CreateReturn(ctx, principal, in, upload)
			if err != nil {
				return err
			}

			fmt.Fprintf(env.Out, "İade #%d eklendi (%s).\n", ret.ID, ret.Status.Label())
			if upload != nil && !ret.ImagePath.Valid {
				fmt.Fprintln(env.Out, "Uyarı: görsel kabul edilmedi, iade görselsiz kaydedildi.")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&in.OrderID, "order-id", "", "order number")
	cmd.Flags().StringVar(&in.Product, "product", "", "product name")
	cmd.Flags().StringVar(&in.Brand, "brand", "", "brand")
	cmd.Flags().StringVar(&in.Platform, "platform", "", "sales platform")
	cmd.Flags().StringVar(&in.Reason, "reason", "", "return reason")
	cmd.Flags().StringVar(&in.ReturnDate, "return-date", "", "return date, YYYY-MM-DD")
	cmd.Flags().StringVar(&imagePath, "image", "", "path to a product image")
	return cmd
}

// fillMissing prompts for every empty field in form order
func (env *Env) fillMissing(in *models.CreateReturnInput) error {
	type field struct {
		label   string
		target  *string
		options []string
	}
	fields := []field{
		{"Sipariş Numarası", &in.OrderID, nil},
		{"Ürün", &in.Product, nil},
		{"Marka", &in.Brand, nil},
		{"Platform", &in.Platform, env.Config.Catalog.Platforms},
		{"İade Sebebi", &in.Reason, env.Config.Catalog.Reasons},
		{"İade Tarihi (YYYY-AA-GG)", &in.ReturnDate, nil},
	}

	for _, f := range fields {
		if *f.target != "" {
			continue
		}
		var (
			answer string
			err    error
		)
		if len(f.options) > 0 {
			answer, err = env.prompt.choose(f.label, f.options)
		} else {
			answer, err = env.prompt.line(f.label)
		}
		if err != nil {
			return err
		}
		*f.target = answer
	}
	return nil
}

func decisionCmd(env *Env, use string, status models.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: fmt.Sprintf("Mark a pending return as %s", status),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return contextutils.ErrorWithContextf("invalid return id %q", args[0])
			}

			ctx := cmd.Context()
			svc, principal, err := env.login(ctx)
			if err != nil {
				return err
			}

			ret, err := svc.UpdateStatus(ctx, principal, id, string(status))
			if err != nil {
				return err
			}
			fmt.Fprintf(env.Out, "İade #%d: %s (%s)\n", ret.ID, ret.Status.Label(), ret.ApprovedBy.String)
			return nil
		},
	}
}

func exportCmd(env *Env) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all returns to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			svc, principal, err := env.login(ctx)
			if err != nil {
				return err
			}

			returns, err := svc.ListReturns(ctx, principal)
			if err != nil {
				return err
			}

			if out == "" {
				out = export.Filename(time.Now())
			}
			return writeWorkbook(ctx, out, returns, env)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default iadeler_<timestamp>.xlsx)")
	return cmd
}

// writeReturns renders the workbook; replaced in tests
var writeReturns = export.WriteReturns

// writeWorkbook writes the export to path, removing the file if any step fails
func writeWorkbook(ctx context.Context, path string, returns []models.Return, env *Env) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return contextutils.WrapErrorf(err, "failed to create %s", path)
	}

	writeErr := writeReturns(f, returns)
	closeErr := f.Close()
	if writeErr != nil || closeErr != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			env.Logger.Warn(ctx, "Failed to remove partial export", map[string]interface{}{"path": path, "error": rmErr.Error()})
		}
		return contextutils.WrapErrorf(errors.Join(writeErr, closeErr), "failed to write %s", path)
	}
	env.Logger.Info(ctx, "Exported returns", map[string]interface{}{"path": path, "count": len(returns)})
	fmt.Fprintf(env.Out, "%d iade %s dosyasına yazıldı.\n", len(returns), path)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func addedAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
