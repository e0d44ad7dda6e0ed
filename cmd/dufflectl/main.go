package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gopkg.in/ini.v1"

	"github.com/bundleops/dufflectl/duffle"
	"github.com/bundleops/dufflectl/duffle/shell"
	"github.com/bundleops/dufflectl/logger"
)

type flags struct {
	BundleRef      string
	BundledRoot    string
	CredAddFiles   fileListValue
	CredGenerate   string
	CredRemove     string
	CredentialSet  string
	Debug          bool
	File           string
	Home           string
	Hostname       string
	IniFilePath    string
	Install        string
	KeyPassPrompt  bool
	ListBundles    bool
	ListCreds      bool
	ListRepos      bool
	LogFileName    string
	PasswordPrompt bool
	PushFile       string
	Repo           string
	Sets           setValue
	Uninstall      string
	Upgrade        string
	Username       string
	Version        bool
}

// setValue accumulates repeated -set k=v flags into a parameter map.
type setValue map[string]string

func (s setValue) String() string {
	pairs := make([]string, 0, len(s))
	for k, v := range s {
		pairs = append(pairs, k+"="+v)
	}
	return strings.Join(pairs, ",")
}

func (s setValue) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("expected k=v, got %q", value)
	}
	s[k] = v
	return nil
}

// fileListValue accumulates repeated file flags.
type fileListValue []string

func (f *fileListValue) String() string {
	return strings.Join(*f, ",")
}

func (f *fileListValue) Set(value string) error {
	*f = append(*f, value)
	return nil
}

func parseFlags() *flags {
	f := &flags{Sets: setValue{}}
	flag.BoolVar(&f.Debug, "debug", false, "Enable debug log level")
	flag.BoolVar(&f.ListBundles, "list", false, "List installed bundles")
	flag.BoolVar(&f.ListCreds, "creds", false, "List stored credential sets")
	flag.BoolVar(&f.ListRepos, "repos", false, "List known bundle repositories")
	flag.BoolVar(&f.KeyPassPrompt, "keypass", false, "Prompt for the SSH key passphrase")
	flag.BoolVar(&f.PasswordPrompt, "password", false, "Prompt for the SSH password")
	flag.BoolVar(&f.Version, "version", false, "Print the resolved duffle version")
	flag.StringVar(&f.BundleRef, "bundle", "", "Bundle reference for install/generate")
	flag.StringVar(&f.BundledRoot, "bundled-root", "", "Resource directory holding bundled duffle binaries")
	flag.StringVar(&f.CredGenerate, "cred-generate", "", "Generate a credential set with this name")
	flag.StringVar(&f.CredRemove, "cred-remove", "", "Remove the named credential set")
	flag.StringVar(&f.CredentialSet, "c", "", "Credential set to apply")
	flag.StringVar(&f.File, "f", "", "Bundle file for install/generate")
	flag.StringVar(&f.Home, "home", "", "Duffle home directory override")
	flag.StringVar(&f.Hostname, "hostname", "", "Run duffle on this host instead of locally")
	flag.StringVar(&f.IniFilePath, "ini", "", "Path to INI file with dufflectl configuration")
	flag.StringVar(&f.Install, "install", "", "Install a bundle under this name")
	flag.StringVar(&f.LogFileName, "log", "dufflectl.log", "Log file name")
	flag.StringVar(&f.PushFile, "push", "", "Push this bundle file")
	flag.StringVar(&f.Repo, "repo", "", "Repository to push to")
	flag.StringVar(&f.Uninstall, "uninstall", "", "Uninstall the named bundle")
	flag.StringVar(&f.Upgrade, "upgrade", "", "Upgrade the named bundle")
	flag.StringVar(&f.Username, "username", "", "Username for the SSH connection")
	flag.Var(&f.CredAddFiles, "cred-add", "Credential set file to import (repeatable)")
	flag.Var(f.Sets, "set", "Installation parameter k=v (repeatable)")

	flag.Parse()

	return f
}

// applyIniDefaults fills unset flags from the configuration file.
func applyIniDefaults(f *flags) error {
	if f.IniFilePath == "" {
		return nil
	}
	cfg, err := ini.Load(f.IniFilePath)
	if err != nil {
		return err
	}

	section := cfg.Section("duffle")
	if f.Home == "" {
		f.Home = section.Key("home").String()
	}
	if f.BundledRoot == "" {
		f.BundledRoot = section.Key("bundled_root").String()
	}
	if f.CredentialSet == "" {
		f.CredentialSet = section.Key("credential_set").String()
	}
	if f.Repo == "" {
		f.Repo = section.Key("repo").String()
	}

	remote := cfg.Section("remote")
	if f.Hostname == "" {
		f.Hostname = remote.Key("host").String()
	}
	if f.Username == "" {
		f.Username = remote.Key("user").String()
	}

	return nil
}

func buildRunner(f *flags) (shell.Runner, error) {
	if f.Hostname == "" || f.Hostname == "localhost" || f.Hostname == "127.0.0.1" {
		return &shell.LocalRunner{}, nil
	}

	var password, keyPass string
	if f.PasswordPrompt {
		fmt.Print("Enter the password: ")
		passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %v", err)
		}
		password = string(passwordBytes)
		fmt.Println()
	}
	if f.KeyPassPrompt {
		fmt.Print("Enter the key passphrase: ")
		keyPassBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return nil, fmt.Errorf("failed to read key passphrase: %v", err)
		}
		keyPass = string(keyPassBytes)
		fmt.Println()
	}

	return &shell.RemoteRunner{
		Host:          f.Hostname,
		User:          f.Username,
		Password:      password,
		KeyPassphrase: keyPass,
		Dialer:        shell.NetDialer{},
	}, nil
}

func printLines(header string, lines []string) {
	fmt.Println(header)
	for _, line := range lines {
		fmt.Println(line)
	}
}

func main() {
	f := parseFlags()

	if err := applyIniDefaults(f); err != nil {
		log.Fatalf("Failed to read INI file: %v", err)
	}

	file, err := os.OpenFile(f.LogFileName, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		logrus.Fatal(err)
	}
	defer file.Close()

	cliLog := logrus.New()
	cliLog.SetOutput(file)
	level := slog.LevelInfo
	if f.Debug {
		cliLog.SetLevel(logrus.DebugLevel)
		level = slog.LevelDebug
	} else {
		cliLog.SetLevel(logrus.InfoLevel)
	}

	runner, err := buildRunner(f)
	if err != nil {
		cliLog.Error(err)
		log.Fatal(err)
	}

	options := []duffle.ClientOption{
		duffle.WithRunner(runner),
		duffle.WithLogger(logger.NewWithOutput(file, level)),
	}
	if f.BundledRoot != "" {
		options = append(options, duffle.WithBundledRoot(f.BundledRoot))
	}
	if f.Home != "" {
		options = append(options, duffle.WithHome(f.Home))
	}

	client := duffle.New(options...)
	ctx := context.Background()

	var result *multierror.Error

	if f.Version {
		version, err := client.Version(ctx)
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			fmt.Println(version)
		}
	}

	if f.ListBundles {
		bundles, err := client.List(ctx)
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			printLines("Bundles:", bundles)
		}
	}

	if f.ListCreds {
		sets, err := client.CredentialSets(ctx)
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			printLines("Credential sets:", sets)
		}
	}

	if f.ListRepos {
		repos, err := client.Repos(ctx)
		if err != nil {
			result = multierror.Append(result, err)
		} else {
			printLines("Repositories:", repos)
		}
	}

	if f.Install != "" {
		switch {
		case f.File != "":
			err = client.InstallFile(ctx, f.Install, f.File, f.Sets, f.CredentialSet)
		case f.BundleRef != "":
			err = client.Install(ctx, f.Install, f.BundleRef, f.Sets, f.CredentialSet)
		default:
			err = fmt.Errorf("install %s: either -f or -bundle is required", f.Install)
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	if f.Upgrade != "" {
		if err := client.Upgrade(ctx, f.Upgrade); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if f.Uninstall != "" {
		if err := client.Uninstall(ctx, f.Uninstall); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if f.PushFile != "" {
		if f.Repo == "" {
			result = multierror.Append(result, fmt.Errorf("push %s: -repo is required", f.PushFile))
		} else if err := client.Push(ctx, f.PushFile, f.Repo); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if len(f.CredAddFiles) > 0 {
		if err := client.AddCredentialSets(ctx, f.CredAddFiles); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if f.CredRemove != "" {
		if err := client.RemoveCredentialSet(ctx, f.CredRemove); err != nil {
			result = multierror.Append(result, err)
		}
	}

	if f.CredGenerate != "" {
		switch {
		case f.File != "":
			err = client.GenerateCredentialsFile(ctx, f.CredGenerate, f.File)
		case f.BundleRef != "":
			err = client.GenerateCredentials(ctx, f.CredGenerate, f.BundleRef)
		default:
			err = fmt.Errorf("cred-generate %s: either -f or -bundle is required", f.CredGenerate)
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
	}

	if merr := result.ErrorOrNil(); merr != nil {
		for _, e := range result.Errors {
			cliLog.Error(e)
			fmt.Fprintln(os.Stderr, e)
		}
		file.Close() // os.Exit skips the deferred close
		os.Exit(1)
	}
}
