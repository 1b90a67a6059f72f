package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/hakim/secureval/internal/inventory"
	"github.com/hakim/secureval/internal/models"
	"github.com/hakim/secureval/internal/storage"
	"github.com/spf13/cobra"
)

var assetCmd = &cobra.Command{
	Use:   "asset",
	Short: "Manage the asset inventory",
	Long: `Register and inspect the business assets that risk is scored against.

An asset's name is matched case-insensitively as a substring of each endpoint
URL; the first registered asset that matches wins. Its value is the mean of
its confidentiality, integrity and availability ratings (1-5). Endpoints that
match no asset are valued at 2.0.`,
}

var assetAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a new asset",
	Long: `Register a new asset from flags, or interactively with --interactive.

Example:
  secureval asset add --name shop --owner Sales -c 4 -i 4 -a 5`,
	RunE: func(cmd *cobra.Command, args []string) error {
		interactive, _ := cmd.Flags().GetBool("interactive")

		in := inventory.Input{}
		if interactive {
			in = promptAsset(bufio.NewReader(os.Stdin))
		} else {
			in.Name, _ = cmd.Flags().GetString("name")
			assetType, _ := cmd.Flags().GetString("type")
			status, _ := cmd.Flags().GetString("status")
			in.Type = models.AssetType(assetType)
			in.Status = models.AssetStatus(status)
			in.Description, _ = cmd.Flags().GetString("description")
			in.Area, _ = cmd.Flags().GetString("area")
			in.Processes, _ = cmd.Flags().GetString("processes")
			in.Owner, _ = cmd.Flags().GetString("owner")
			in.Confidentiality, _ = cmd.Flags().GetInt("confidentiality")
			in.Integrity, _ = cmd.Flags().GetInt("integrity")
			in.Availability, _ = cmd.Flags().GetInt("availability")
		}

		return withStore(func(store *storage.Store) error {
			asset, err := inventory.Register(store, in)
			if err != nil {
				return fmt.Errorf("registering asset: %w", err)
			}
			fmt.Printf("[+] Registered asset %q (%s, value %.2f)\n", asset.Name, asset.CIAImpact(), asset.Value)
			return nil
		})
	},
}

var assetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered assets in matching order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *storage.Store) error {
			assets, err := store.ListAssets()
			if err != nil {
				return fmt.Errorf("listing assets: %w", err)
			}
			if len(assets) == 0 {
				fmt.Println("No assets registered. Add one with 'secureval asset add'.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "#\tName\tType\tStatus\tOwner\tCIA\tValue")
			fmt.Fprintln(w, "-\t----\t----\t------\t-----\t---\t-----")
			for i, a := range assets {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%.2f\n",
					i+1, a.Name, a.Type, a.Status, dashIfEmpty(a.Owner), a.CIAImpact(), a.Value)
			}
			return w.Flush()
		})
	},
}

var assetShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show every attribute of an asset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *storage.Store) error {
			a, err := store.GetAsset(args[0])
			if errors.Is(err, storage.ErrAssetNotFound) {
				return fmt.Errorf("no asset named %q", args[0])
			}
			if err != nil {
				return err
			}

			fmt.Printf("Name:        %s\n", a.Name)
			fmt.Printf("ID:          %s\n", a.ID)
			fmt.Printf("Type:        %s\n", a.Type)
			fmt.Printf("Status:      %s\n", a.Status)
			fmt.Printf("Description: %s\n", dashIfEmpty(a.Description))
			fmt.Printf("Area:        %s\n", dashIfEmpty(a.Area))
			fmt.Printf("Processes:   %s\n", dashIfEmpty(a.Processes))
			fmt.Printf("Owner:       %s\n", dashIfEmpty(a.Owner))
			fmt.Printf("CIA impact:  %s\n", a.CIAImpact())
			fmt.Printf("Value:       %.2f\n", a.Value)
			fmt.Printf("Registered:  %s\n", a.RegisteredAt.Format("2006-01-02 15:04:05"))
			return nil
		})
	},
}

var assetImportCmd = &cobra.Command{
	Use:   "import <file.json>",
	Short: "Register every asset in a JSON array",
	Long: `Register assets from a JSON array of objects with the fields name, type,
description, status, area, processes, owner, confidentiality, integrity and
availability. Entries are registered in file order; invalid entries are
reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *storage.Store) error {
			n, err := inventory.ImportFile(store, args[0])
			fmt.Printf("[+] Imported %d assets from %s\n", n, args[0])
			if err != nil {
				return fmt.Errorf("some entries were rejected:\n%w", err)
			}
			return nil
		})
	},
}

var assetExportCmd = &cobra.Command{
	Use:   "export <file.json>",
	Short: "Write the asset inventory to a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *storage.Store) error {
			n, err := inventory.ExportFile(store, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("[+] Exported %d assets to %s\n", n, args[0])
			return nil
		})
	},
}

// withStore opens the database for the duration of fn.
func withStore(fn func(store *storage.Store) error) error {
	if cfg == nil {
		return errNoConfig
	}
	store, err := storage.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// promptAsset asks for each asset attribute on stdin.
func promptAsset(reader *bufio.Reader) inventory.Input {
	fmt.Println("[*] Register a new asset. Press Enter to accept the default shown in brackets.")

	in := inventory.Input{}
	for in.Name == "" {
		in.Name = prompt(reader, "[?] Name (matched against endpoint URLs): ", "")
		if in.Name == "" {
			fmt.Println("[!] A name is required.")
		}
	}
	in.Type = models.AssetType(prompt(reader, "[?] Type (Primary/Secondary/Support) [Primary]: ", string(models.AssetPrimary)))
	in.Description = prompt(reader, "[?] Description: ", "")
	in.Status = models.AssetStatus(prompt(reader, "[?] Status (In use/Current/Not current/Removed) [In use]: ", string(models.AssetInUse)))
	in.Area = prompt(reader, "[?] Area: ", "")
	in.Processes = prompt(reader, "[?] Processes: ", "")
	in.Owner = prompt(reader, "[?] Owner: ", "")
	in.Confidentiality = promptRating(reader, "Confidentiality")
	in.Integrity = promptRating(reader, "Integrity")
	in.Availability = promptRating(reader, "Availability")
	return in
}

func promptRating(reader *bufio.Reader, label string) int {
	for {
		raw := prompt(reader, fmt.Sprintf("[?] %s impact (1-5) [3]: ", label), "3")
		v, err := strconv.Atoi(raw)
		if err == nil && v >= 1 && v <= 5 {
			return v
		}
		fmt.Println("[!] Enter a whole number between 1 and 5.")
	}
}

// prompt prints a prompt and returns the trimmed line, or defaultVal when
// the line is empty or stdin is closed.
func prompt(reader *bufio.Reader, text, defaultVal string) string {
	fmt.Print(text)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return defaultVal
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return defaultVal
	}
	return line
}

func dashIfEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	f := assetAddCmd.Flags()
	f.String("name", "", "asset name, matched as a substring of endpoint URLs")
	f.String("type", string(models.AssetPrimary), "asset type: Primary, Secondary or Support")
	f.String("status", string(models.AssetInUse), "asset status: In use, Current, Not current or Removed")
	f.String("description", "", "free-text description")
	f.String("area", "", "owning business area")
	f.String("processes", "", "business processes the asset supports")
	f.String("owner", "", "responsible owner")
	f.IntP("confidentiality", "c", 0, "confidentiality impact (1-5)")
	f.IntP("integrity", "i", 0, "integrity impact (1-5)")
	f.IntP("availability", "a", 0, "availability impact (1-5)")
	f.Bool("interactive", false, "prompt for every attribute")

	assetCmd.AddCommand(assetAddCmd, assetListCmd, assetShowCmd, assetImportCmd, assetExportCmd)
	rootCmd.AddCommand(assetCmd)
}
