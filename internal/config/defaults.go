package config

const (
	defaultOutputPath       = "contacts_final.vcf"
	defaultSplitDir         = "contacts_split"
	defaultCardVersion      = "3.0"
	defaultBackupSuffix     = "_backup"
	defaultFallbackCharset  = "windows-1252"
	defaultPhoneMinDigits   = 7
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60
)

// defaultMobilePrefixes recognizes German mobile numbers, in international
// and national notation. Matching is done against a digits-and-plus rendering
// of the number.
var defaultMobilePrefixes = []string{
	"+4915", "+4916", "+4917",
	"015", "016", "017",
}

// defaultPreferUpdate and defaultPreferSource split conflicting fields
// between the two input files: contact reachability data follows the update
// file, identity data stays with the source file.
var (
	defaultPreferUpdate = []string{"EMAIL", "TEL", "ADR", "ORG", "NOTE"}
	defaultPreferSource = []string{"N", "FN", "BDAY"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Output: Output{
			Path:     defaultOutputPath,
			SplitDir: defaultSplitDir,
			Version:  defaultCardVersion,
		},
		Backup: Backup{
			Enabled: true,
			Suffix:  defaultBackupSuffix,
		},
		Encoding: Encoding{
			FallbackEnabled: true,
			FallbackCharset: defaultFallbackCharset,
		},
		Phone: Phone{
			MinDigits:       defaultPhoneMinDigits,
			CheckDuplicates: true,
			MobilePrefixes:  append([]string(nil), defaultMobilePrefixes...),
		},
		Conflict: Conflict{
			PreferUpdate: append([]string(nil), defaultPreferUpdate...),
			PreferSource: append([]string(nil), defaultPreferSource...),
		},
		Mojibake: Mojibake{
			Enabled: true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
