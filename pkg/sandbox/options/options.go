// Package options holds the feature flags that control how sandboxed code
// is validated and rewritten.
package options

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"mercator-hq/bastion/pkg/sandbox/policy"
)

// Options is the configuration surface consumed by the validator and the
// auto-whitelist passes. Start from Defaults and override fields; YAML
// documents decoded over Defaults keep the defaults of absent keys.
type Options struct {
	// Policy enforcement per category. A false flag skips all checks for the category.
	ValidateFunctions      bool `yaml:"validate_functions"`
	ValidateVariables      bool `yaml:"validate_variables"`
	ValidateGlobals        bool `yaml:"validate_globals"`
	ValidateSuperglobals   bool `yaml:"validate_superglobals"`
	ValidateConstants      bool `yaml:"validate_constants"`
	ValidateMagicConstants bool `yaml:"validate_magic_constants"`
	ValidateNamespaces     bool `yaml:"validate_namespaces"`
	ValidateAliases        bool `yaml:"validate_aliases"`
	ValidateClasses        bool `yaml:"validate_classes"`
	ValidateInterfaces     bool `yaml:"validate_interfaces"`
	ValidateTraits         bool `yaml:"validate_traits"`
	ValidateKeywords       bool `yaml:"validate_keywords"`
	ValidateOperators      bool `yaml:"validate_operators"`
	ValidatePrimitives     bool `yaml:"validate_primitives"`
	ValidateTypes          bool `yaml:"validate_types"`

	// Language features.
	AllowFunctions        bool `yaml:"allow_functions"`
	AllowClosures         bool `yaml:"allow_closures"`
	AllowVariables        bool `yaml:"allow_variables"`
	AllowStaticVariables  bool `yaml:"allow_static_variables"`
	AllowObjects          bool `yaml:"allow_objects"`
	AllowConstants        bool `yaml:"allow_constants"`
	AllowGlobals          bool `yaml:"allow_globals"`
	AllowNamespaces       bool `yaml:"allow_namespaces"`
	AllowAliases          bool `yaml:"allow_aliases"`
	AllowClasses          bool `yaml:"allow_classes"`
	AllowInterfaces       bool `yaml:"allow_interfaces"`
	AllowTraits           bool `yaml:"allow_traits"`
	AllowGenerators       bool `yaml:"allow_generators"`
	AllowEscaping         bool `yaml:"allow_escaping"`
	AllowCasting          bool `yaml:"allow_casting"`
	AllowErrorSuppressing bool `yaml:"allow_error_suppressing"`
	AllowReferences       bool `yaml:"allow_references"`
	AllowBackticks        bool `yaml:"allow_backticks"`
	AllowHalting          bool `yaml:"allow_halting"`
	AllowIncludes         bool `yaml:"allow_includes"`

	// Auto-whitelisting of symbols declared by trusted or sandboxed code.
	AutoWhitelistTrustedCode bool `yaml:"auto_whitelist_trusted_code"`
	AutoWhitelistFunctions   bool `yaml:"auto_whitelist_functions"`
	AutoWhitelistConstants   bool `yaml:"auto_whitelist_constants"`
	AutoWhitelistGlobals     bool `yaml:"auto_whitelist_globals"`
	AutoWhitelistClasses     bool `yaml:"auto_whitelist_classes"`
	AutoWhitelistInterfaces  bool `yaml:"auto_whitelist_interfaces"`
	AutoWhitelistTraits      bool `yaml:"auto_whitelist_traits"`

	// Interception rewrites.
	OverwriteDefinedFuncs         bool `yaml:"overwrite_defined_funcs"`
	OverwriteSandboxedStringFuncs bool `yaml:"overwrite_sandboxed_string_funcs"`
	OverwriteFuncGetArgs          bool `yaml:"overwrite_func_get_args"`
	OverwriteSuperglobals         bool `yaml:"overwrite_superglobals"`

	// SandboxStrings wraps every call argument so callable strings are intercepted.
	SandboxStrings bool `yaml:"sandbox_strings"`

	// SkipValidation passes the program through without validation or rewriting.
	SkipValidation bool `yaml:"skip_validation"`

	// Pass-through settings for the execution facility.
	ErrorLevel int           `yaml:"error_level,omitempty"`
	TimeLimit  time.Duration `yaml:"time_limit,omitempty"`
}

// Defaults returns the default options: every category is validated,
// variables, static variables, objects and references are allowed, other
// features are disabled, and all auto-whitelisting and interception is on.
func Defaults() Options {
	return Options{
		ValidateFunctions:      true,
		ValidateVariables:      true,
		ValidateGlobals:        true,
		ValidateSuperglobals:   true,
		ValidateConstants:      true,
		ValidateMagicConstants: true,
		ValidateNamespaces:     true,
		ValidateAliases:        true,
		ValidateClasses:        true,
		ValidateInterfaces:     true,
		ValidateTraits:         true,
		ValidateKeywords:       true,
		ValidateOperators:      true,
		ValidatePrimitives:     true,
		ValidateTypes:          true,

		AllowVariables:       true,
		AllowStaticVariables: true,
		AllowObjects:         true,
		AllowReferences:      true,

		AutoWhitelistTrustedCode: true,
		AutoWhitelistFunctions:   true,
		AutoWhitelistConstants:   true,
		AutoWhitelistGlobals:     true,
		AutoWhitelistClasses:     true,
		AutoWhitelistInterfaces:  true,
		AutoWhitelistTraits:      true,

		OverwriteDefinedFuncs:         true,
		OverwriteSandboxedStringFuncs: true,
		OverwriteFuncGetArgs:          true,
		OverwriteSuperglobals:         true,

		SandboxStrings: true,
	}
}

// Validates reports whether policy checks are enabled for c.
func (o *Options) Validates(c policy.Category) bool {
	switch c {
	case policy.Function:
		return o.ValidateFunctions
	case policy.Variable:
		return o.ValidateVariables
	case policy.Global:
		return o.ValidateGlobals
	case policy.Superglobal:
		return o.ValidateSuperglobals
	case policy.Constant:
		return o.ValidateConstants
	case policy.MagicConstant:
		return o.ValidateMagicConstants
	case policy.Namespace:
		return o.ValidateNamespaces
	case policy.Alias:
		return o.ValidateAliases
	case policy.Class:
		return o.ValidateClasses
	case policy.Interface:
		return o.ValidateInterfaces
	case policy.Trait:
		return o.ValidateTraits
	case policy.Keyword:
		return o.ValidateKeywords
	case policy.Operator:
		return o.ValidateOperators
	case policy.Primitive:
		return o.ValidatePrimitives
	case policy.Type:
		return o.ValidateTypes
	}
	return false
}

// SetValidates enables or disables policy checks for c.
func (o *Options) SetValidates(c policy.Category, enabled bool) {
	switch c {
	case policy.Function:
		o.ValidateFunctions = enabled
	case policy.Variable:
		o.ValidateVariables = enabled
	case policy.Global:
		o.ValidateGlobals = enabled
	case policy.Superglobal:
		o.ValidateSuperglobals = enabled
	case policy.Constant:
		o.ValidateConstants = enabled
	case policy.MagicConstant:
		o.ValidateMagicConstants = enabled
	case policy.Namespace:
		o.ValidateNamespaces = enabled
	case policy.Alias:
		o.ValidateAliases = enabled
	case policy.Class:
		o.ValidateClasses = enabled
	case policy.Interface:
		o.ValidateInterfaces = enabled
	case policy.Trait:
		o.ValidateTraits = enabled
	case policy.Keyword:
		o.ValidateKeywords = enabled
	case policy.Operator:
		o.ValidateOperators = enabled
	case policy.Primitive:
		o.ValidatePrimitives = enabled
	case policy.Type:
		o.ValidateTypes = enabled
	}
}

// AllowsDeclaring reports whether sandboxed code may declare symbols of c.
func (o *Options) AllowsDeclaring(c policy.Category) bool {
	switch c {
	case policy.Function:
		return o.AllowFunctions
	case policy.Constant:
		return o.AllowConstants
	case policy.Global:
		return o.AllowGlobals
	case policy.Class:
		return o.AllowClasses
	case policy.Interface:
		return o.AllowInterfaces
	case policy.Trait:
		return o.AllowTraits
	case policy.Type:
		return o.AllowObjects
	}
	return false
}

// AutoWhitelists reports whether declarations of c found in sandboxed code
// are whitelisted automatically.
func (o *Options) AutoWhitelists(c policy.Category) bool {
	switch c {
	case policy.Function:
		return o.AutoWhitelistFunctions
	case policy.Constant:
		return o.AutoWhitelistConstants
	case policy.Global:
		return o.AutoWhitelistGlobals
	case policy.Class:
		return o.AutoWhitelistClasses
	case policy.Interface:
		return o.AutoWhitelistInterfaces
	case policy.Trait:
		return o.AutoWhitelistTraits
	case policy.Type:
		return o.AutoWhitelistClasses
	}
	return false
}

// Validate checks the pass-through settings.
func (o *Options) Validate() error {
	if o.TimeLimit < 0 {
		return fmt.Errorf("time_limit must be non-negative, got %s", o.TimeLimit)
	}
	return nil
}

// Fingerprint returns a stable digest of the options.
func (o *Options) Fingerprint() string {
	data, err := yaml.Marshal(o)
	if err != nil {
		// Options only holds scalars; Marshal cannot fail.
		panic(fmt.Sprintf("options: marshal failed: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
