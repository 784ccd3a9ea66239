package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-gallery/pkg/simplegallery"
	"github.com/tendant/simple-gallery/pkg/simplegallery/scan"
	"github.com/tendant/simple-gallery/pkg/simplegallery/verify"
)

// NewMigrateCommand creates the migrate command
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the catalog schema",
		Long:  `Create the collections and images tables when the catalog is Postgres. A no-op for the in-memory catalog.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromFlags(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Println("Schema applied")
			return nil
		},
	}
}

// NewIngestCommand creates the ingest command
func NewIngestCommand() *cobra.Command {
	var collectionID string
	var titleES, titleEN, titleFR string
	var tags []string
	var featured bool

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest a local image into a collection",
		Long:  `Verify a local image, render its derivatives into the output root and add it to the collection.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filePath := args[0]
			data, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("read %s: %w", filePath, err)
			}

			rt, err := runtimeFromFlags(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			img, err := rt.Service.Ingest(cmd.Context(), simplegallery.IngestRequest{
				CollectionID: collectionID,
				Data:         data,
				FileName:     filepath.Base(filePath),
				MimeType:     verify.MimeForExtension(filepath.Ext(filePath)),
				Metadata: simplegallery.ImageMetadata{
					Title:    simplegallery.LocalizedText{ES: titleES, EN: titleEN, FR: titleFR},
					Tags:     tags,
					Featured: featured,
				},
			})
			if err != nil {
				return fmt.Errorf("ingest failed: %s", simplegallery.PublicMessage(err))
			}

			fmt.Printf("Ingested %s (%dx%d, %s)\n", img.ID, img.Width, img.Height, img.AspectRatio)
			for _, size := range simplegallery.DefaultSizes() {
				if p, ok := img.Files[size.Label]; ok {
					fmt.Printf("  %-12s %s\n", size.Label, p)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionID, "collection", "", "collection id (required)")
	cmd.Flags().StringVar(&titleES, "title-es", "", "Spanish title")
	cmd.Flags().StringVar(&titleEN, "title-en", "", "English title")
	cmd.Flags().StringVar(&titleFR, "title-fr", "", "French title")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().BoolVar(&featured, "featured", false, "mark the image as featured")
	_ = cmd.MarkFlagRequired("collection")

	return cmd
}

// NewCreateCollectionCommand creates the create-collection command
func NewCreateCollectionCommand() *cobra.Command {
	var slug, nameEN, nameFR, layout string

	cmd := &cobra.Command{
		Use:   "create-collection <spanish name>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromFlags(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			col, err := rt.Service.CreateCollection(cmd.Context(), simplegallery.CreateCollectionRequest{
				Slug:   slug,
				Name:   simplegallery.LocalizedText{ES: args[0], EN: nameEN, FR: nameFR},
				Layout: simplegallery.Layout(layout),
			})
			if err != nil {
				return fmt.Errorf("create collection failed: %s", simplegallery.PublicMessage(err))
			}
			fmt.Printf("Created collection %s\n", col.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&slug, "slug", "", "slug (derived from the Spanish name when empty)")
	cmd.Flags().StringVar(&nameEN, "name-en", "", "English name")
	cmd.Flags().StringVar(&nameFR, "name-fr", "", "French name")
	cmd.Flags().StringVar(&layout, "layout", "grid", "cinematic | grid | masonry | horizontal-scroll")

	return cmd
}

// NewListCommand creates the list command
func NewListCommand() *cobra.Command {
	var collectionID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List collections, or the images of one collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromFlags(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			var out interface{}
			if collectionID == "" {
				out, err = rt.Service.ListCollections(cmd.Context())
			} else {
				out, err = rt.Service.ListImages(cmd.Context(), collectionID)
			}
			if err != nil {
				return fmt.Errorf("list failed: %s", simplegallery.PublicMessage(err))
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().StringVar(&collectionID, "collection", "", "list the images of this collection")
	return cmd
}

// NewDeleteImageCommand creates the delete-image command
func NewDeleteImageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-image <image id>",
		Short: "Delete an image and its derivative files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromFlags(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			if err := rt.Service.DeleteImage(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete failed: %s", simplegallery.PublicMessage(err))
			}
			fmt.Printf("Deleted image %s\n", args[0])
			return nil
		},
	}
}

// NewDeleteCollectionCommand creates the delete-collection command
func NewDeleteCollectionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-collection <collection id>",
		Short: "Delete a collection, its images and their files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromFlags(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := rt.Service.DeleteCollection(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("delete failed: %s", simplegallery.PublicMessage(err))
			}
			fmt.Printf("Deleted collection %s with %d images\n", report.CollectionID, report.DeletedImages)
			for _, id := range report.FailedImages() {
				for _, ferr := range report.FileFailures[id] {
					fmt.Fprintf(cmd.ErrOrStderr(), "  warning: %s: %v\n", id, ferr)
				}
			}
			return nil
		},
	}
}

// NewAuditCommand creates the audit command
func NewAuditCommand() *cobra.Command {
	var collectionID string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check that every indexed image still has all its derivative files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromFlags(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			audit := scan.NewFileAudit(rt.Store.BaseDir(), rt.Config.URLPrefix, rt.Config.Sizes)
			result, err := scan.New(rt.Service, slog.Default()).Scan(cmd.Context(), scan.ScanOptions{
				CollectionID: collectionID,
				Processor:    audit,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Checked %d images, %d incomplete\n", result.TotalFound, result.TotalFailed)
			for id, ferr := range result.Failures {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s: %v\n", id, ferr)
			}
			if result.TotalFailed > 0 {
				return fmt.Errorf("%d images have missing derivatives", result.TotalFailed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&collectionID, "collection", "", "audit only this collection")
	return cmd
}
