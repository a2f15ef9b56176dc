package main

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gallery-go/internal/app"
	"gallery-go/internal/config"
	"gallery-go/internal/encryption"
	"gallery-go/internal/gallery"
	"gallery-go/internal/server"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/securecookie"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: loading .env: %v\n", err)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var verbose bool

// newApp reads the config and creates an App. The caller must defer a.Close().
// command identifies the CLI command being run (e.g. "CreateEvent", "Serve").
func newApp(command string) (*app.App, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	opts := app.Options{Verbose: verbose}
	if verbose || command == "Serve" {
		opts.Console = os.Stderr
	}

	a, err := app.NewApp(cfg, command, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "gallery",
	Short:        "Event photo gallery",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		encrypt, _ := cmd.Flags().GetBool("encrypt")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])
		cfg.Server.SessionSecret = hex.EncodeToString(securecookie.GenerateRandomKey(32))
		if encrypt {
			cfg.Encryption.Type = "age"
		}

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		if encrypt {
			enc := encryption.NewAgeEncryptor(cfg.Encryption)
			if err := enc.Setup(); err != nil {
				return fmt.Errorf("setting up encryption: %w", err)
			}
			fmt.Printf("Encryption identity: %s\n", cfg.Encryption.IdentityPath)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		encType := cfg.Encryption.Type
		if encType == "" {
			encType = "off"
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Database:    %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Printf("Images:      %s\n", cfg.Images.Type)
		fmt.Printf("Encryption:  %s\n", encType)
		fmt.Printf("Listen Addr: %s\n", cfg.Server.Addr)
		fmt.Printf("Public URL:  %s\n", app.PublicBaseURL(cfg.Server))
		return nil
	},
}

// login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Unlock admin commands with the shared password",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Login")
		if err != nil {
			return err
		}
		defer a.Close()

		password, err := readPassword()
		if err != nil {
			return err
		}

		ok, err := a.Login(password)
		if err != nil {
			return err
		}
		if !ok {
			return errors.New("incorrect password")
		}

		fmt.Println("Logged in.")
		return nil
	},
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "Password: ")
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Lock admin commands again",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Logout")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Logout(); err != nil {
			return err
		}
		fmt.Println("Logged out.")
		return nil
	},
}

// event command
var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Manage events",
}

var eventCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an event",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, _ := cmd.Flags().GetString("date")
		description, _ := cmd.Flags().GetString("description")
		if date == "" {
			date = time.Now().Format(gallery.DateLayout)
		}

		a, err := newApp("CreateEvent")
		if err != nil {
			return err
		}
		defer a.Close()

		event, err := a.CreateEvent(gallery.EventFields{Name: args[0], Date: date, Description: description})
		if err != nil {
			return err
		}

		fmt.Printf("Created event %s (%s, %s)\n", event.ID, event.Name, event.Date)
		return nil
	},
}

var eventListCmd = &cobra.Command{
	Use:   "list [QUERY]",
	Short: "List events, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListEvents")
		if err != nil {
			return err
		}
		defer a.Close()

		query := ""
		if len(args) > 0 {
			query = args[0]
		}

		events, err := a.ListEvents(query)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			fmt.Println("No events found.")
			return nil
		}

		for _, e := range events {
			fmt.Printf("%s  %s  %s\n", e.ID, e.Date, e.Name)
		}
		return nil
	},
}

var eventShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show an event and its photos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GetEvent")
		if err != nil {
			return err
		}
		defer a.Close()

		event, photos, err := a.GetEvent(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:          %s\n", event.ID)
		fmt.Printf("Name:        %s\n", event.Name)
		fmt.Printf("Date:        %s\n", event.Date)
		if event.Description != "" {
			fmt.Printf("Description: %s\n", event.Description)
		}
		fmt.Printf("Updated:     %s\n", humanize.Time(event.UpdatedAt))
		fmt.Printf("Photos:      %d\n", len(photos))
		printPhotos(photos)
		return nil
	},
}

func printPhotos(photos []*gallery.Photo) {
	var total int64
	for _, p := range photos {
		total += p.Size
		fmt.Printf("  %s  %-10s  %-14s  %s\n", p.ID, humanize.Bytes(uint64(p.Size)), humanize.Time(p.UploadedAt), p.Filename)
	}
	if len(photos) > 0 {
		fmt.Printf("Total:       %s\n", humanize.Bytes(uint64(total)))
	}
}

var eventUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Update event fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var update gallery.EventUpdate
		for flag, field := range map[string]**string{
			"name":        &update.Name,
			"date":        &update.Date,
			"description": &update.Description,
		} {
			if cmd.Flags().Changed(flag) {
				v, _ := cmd.Flags().GetString(flag)
				*field = &v
			}
		}

		a, err := newApp("UpdateEvent")
		if err != nil {
			return err
		}
		defer a.Close()

		event, err := a.UpdateEvent(args[0], update)
		if err != nil {
			return err
		}

		fmt.Printf("Updated event %s (%s, %s)\n", event.ID, event.Name, event.Date)
		return nil
	},
}

var eventDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete an event and all of its photos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteEvent")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteEvent(args[0]); err != nil {
			return fmt.Errorf("deleting event (re-run to finish): %w", err)
		}
		fmt.Printf("Deleted event %s\n", args[0])
		return nil
	},
}

var eventShareCmd = &cobra.Command{
	Use:   "share ID",
	Short: "Print the public gallery link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ShareLink")
		if err != nil {
			return err
		}
		defer a.Close()

		link, err := a.ShareLink(args[0])
		if err != nil {
			return err
		}
		fmt.Println(link)
		return nil
	},
}

// photo command
var photoCmd = &cobra.Command{
	Use:   "photo",
	Short: "Manage photos",
}

var photoAddCmd = &cobra.Command{
	Use:   "add EVENT_ID [PATH]",
	Short: "Upload image files to an event",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		recursive, _ := cmd.Flags().GetBool("recursive")

		a, err := newApp("AddPhotos")
		if err != nil {
			return err
		}
		defer a.Close()

		target := "."
		if len(args) > 1 {
			target = args[1]
		}

		result, err := a.AddPhotos(args[0], target, recursive)
		if result != nil {
			var total int64
			for _, p := range result.Uploaded {
				total += p.Size
			}
			fmt.Printf("Uploaded %d photo(s), %s\n", len(result.Uploaded), humanize.Bytes(uint64(total)))
			if len(result.Skipped) > 0 {
				fmt.Printf("Skipped %d non-image file(s)\n", len(result.Skipped))
			}
		}
		return err
	},
}

var photoListCmd = &cobra.Command{
	Use:   "list EVENT_ID",
	Short: "List an event's photos, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListPhotos")
		if err != nil {
			return err
		}
		defer a.Close()

		_, photos, err := a.GetEvent(args[0])
		if err != nil {
			return err
		}
		if len(photos) == 0 {
			fmt.Println("No photos.")
			return nil
		}
		printPhotos(photos)
		return nil
	},
}

var photoDeleteCmd = &cobra.Command{
	Use:   "delete PHOTO_ID",
	Short: "Delete a photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeletePhoto")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeletePhoto(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted photo %s\n", args[0])
		return nil
	},
}

var photoGetCmd = &cobra.Command{
	Use:   "get PHOTO_ID",
	Short: "Download a photo under its original filename",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp("GetPhoto")
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.GetPhoto(args[0], output)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export EVENT_ID",
	Short: "Write a zip archive of an event's photos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		a, err := newApp("ExportEvent")
		if err != nil {
			return err
		}
		defer a.Close()

		path, err := a.ExportEvent(args[0], output)
		if errors.Is(err, gallery.ErrNothingToExport) {
			fmt.Println("Nothing to export.")
			return nil
		}
		if err != nil {
			return err
		}

		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat archive: %w", err)
		}
		fmt.Printf("Exported %s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
		return nil
	},
}

// backup command
var backupCmd = &cobra.Command{
	Use:   "backup PATH",
	Short: "Write a copy of the gallery database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("BackupDatabase")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.BackupDatabase(args[0]); err != nil {
			return err
		}

		info, err := os.Stat(args[0])
		if err != nil {
			return fmt.Errorf("stat backup: %w", err)
		}
		fmt.Printf("Backed up database to %s (%s)\n", args[0], humanize.Bytes(uint64(info.Size())))
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve galleries over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Serve")
		if err != nil {
			return err
		}
		defer a.Close()

		cfg := a.Config()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		var secret []byte
		if cfg.Server.SessionSecret != "" {
			secret, err = hex.DecodeString(cfg.Server.SessionSecret)
			if err != nil {
				secret = []byte(cfg.Server.SessionSecret)
			}
		}

		srv := server.New(a.Service(), server.Options{
			Addr:          cfg.Server.Addr,
			Password:      app.Password(cfg.Access),
			SessionSecret: secret,
			RateLimit:     cfg.Server.RateLimit,
		}, a.Logger())

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		fmt.Printf("Serving galleries at %s\n", app.PublicBaseURL(cfg.Server))
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug records to stderr")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)
	configInitCmd.Flags().Bool("encrypt", false, "Encrypt stored images with a new age identity")

	// event subcommands
	eventCmd.AddCommand(eventCreateCmd)
	eventCreateCmd.Flags().String("date", "", "Event date, YYYY-MM-DD (default today)")
	eventCreateCmd.Flags().String("description", "", "Event description")
	eventCmd.AddCommand(eventListCmd)
	eventCmd.AddCommand(eventShowCmd)
	eventCmd.AddCommand(eventUpdateCmd)
	eventUpdateCmd.Flags().String("name", "", "New event name")
	eventUpdateCmd.Flags().String("date", "", "New event date, YYYY-MM-DD")
	eventUpdateCmd.Flags().String("description", "", "New event description")
	eventCmd.AddCommand(eventDeleteCmd)
	eventCmd.AddCommand(eventShareCmd)

	// photo subcommands
	photoCmd.AddCommand(photoAddCmd)
	photoAddCmd.Flags().BoolP("recursive", "r", false, "Recurse into subdirectories")
	photoCmd.AddCommand(photoListCmd)
	photoCmd.AddCommand(photoDeleteCmd)
	photoCmd.AddCommand(photoGetCmd)
	photoGetCmd.Flags().StringP("output", "o", "", "Directory to write into (default export.output_dir)")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(photoCmd)
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "Directory to write into (default export.output_dir)")
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default server.addr)")
}
