package cmd

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/SmileSnow819/natours/pkg/api"
	"github.com/SmileSnow819/natours/pkg/i18n"
)

func newToursCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tours",
		Short: "Browse tours",
	}
	cmd.AddCommand(newToursListCmd(opts), newToursShowCmd(opts))
	return cmd
}

func newToursListCmd(opts *rootOptions) *cobra.Command {
	var (
		q     api.TourQuery
		price struct{ lt, lte, gt, gte float64 }
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tours",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			for name, dst := range map[string]**float64{
				"price-lt":  &q.Price.LT,
				"price-lte": &q.Price.LTE,
				"price-gt":  &q.Price.GT,
				"price-gte": &q.Price.GTE,
			} {
				if !flags.Changed(name) {
					continue
				}
				v, err := flags.GetFloat64(name)
				if err != nil {
					return err
				}
				*dst = &v
			}

			return run(cmd, opts, func(ctx context.Context, a *app) error {
				a.restore(ctx)
				tours, err := a.client.GetTours(ctx, a.manager, q)
				if err != nil {
					return a.fail(err, i18n.LoadFailed)
				}

				w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tDIFFICULTY\tDAYS\tPRICE\tRATING")
				for _, t := range tours {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2f\t%.1f (%d)\n",
						t.ID, t.Name, t.Difficulty, t.Duration, t.Price, t.RatingsAverage, t.RatingsQuantity)
				}
				return w.Flush()
			})
		},
	}

	f := cmd.Flags()
	f.IntVar(&q.Page, "page", 0, "Page number")
	f.IntVar(&q.Limit, "limit", 0, "Tours per page")
	f.StringVar(&q.Sort, "sort", "", "Sort fields, e.g. price,-ratingsAverage")
	f.StringVar(&q.Fields, "fields", "", "Fields to return")
	f.StringVar(&q.Difficulty, "difficulty", "", "easy, medium or difficult")
	f.Float64Var(&price.lt, "price-lt", 0, "Price below")
	f.Float64Var(&price.lte, "price-lte", 0, "Price at most")
	f.Float64Var(&price.gt, "price-gt", 0, "Price above")
	f.Float64Var(&price.gte, "price-gte", 0, "Price at least")
	return cmd
}

func newToursShowCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one tour",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				a.restore(ctx)
				t, err := a.client.GetTour(ctx, a.manager, args[0])
				if err != nil {
					return a.fail(err, i18n.LoadFailed)
				}

				a.printf("%s\n", t.Name)
				a.printf("  %d days, %s, up to %d people\n", t.Duration, t.Difficulty, t.MaxGroupSize)
				a.printf("  Price:  %.2f\n", t.Price)
				a.printf("  Rating: %.1f (%d)\n", t.RatingsAverage, t.RatingsQuantity)
				if t.Summary != "" {
					a.printf("  %s\n", t.Summary)
				}
				for _, d := range t.StartDates {
					a.printf("  Starts: %s\n", d.Format("2006-01-02"))
				}
				return nil
			})
		},
	}
}

func newReviewsCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviews",
		Short: "Read and write tour reviews",
	}
	cmd.AddCommand(newReviewsListCmd(opts), newReviewsAddCmd(opts))
	return cmd
}

func newReviewsListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [tour-id]",
		Short: "List reviews, optionally of one tour",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tourID := ""
			if len(args) == 1 {
				tourID = args[0]
			}
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				a.restore(ctx)
				reviews, err := a.client.GetReviews(ctx, a.manager, tourID)
				if err != nil {
					return a.fail(err, i18n.LoadFailed)
				}

				w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "RATING\tAUTHOR\tREVIEW")
				for _, r := range reviews {
					author := ""
					if r.User != nil {
						author = r.User.Name
						if author == "" {
							author = r.User.ID
						}
					}
					fmt.Fprintf(w, "%.1f\t%s\t%s\n", r.Rating, author, strings.TrimSpace(r.Review))
				}
				return w.Flush()
			})
		},
	}
}

func newReviewsAddCmd(opts *rootOptions) *cobra.Command {
	var input api.ReviewInput

	cmd := &cobra.Command{
		Use:   "add <tour-id>",
		Short: "Review a tour as the signed-in user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, a *app) error {
				if _, err := a.requireSession(ctx); err != nil {
					return err
				}
				r, err := a.client.CreateReview(ctx, a.manager, args[0], input)
				if err != nil {
					return a.fail(err, i18n.ReviewFailed)
				}
				a.printf("Review %s posted\n", r.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&input.Review, "text", "t", "", "Review text")
	cmd.Flags().Float64VarP(&input.Rating, "rating", "r", 0, "Rating from 1 to 5")
	return cmd
}
