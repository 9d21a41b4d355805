package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Thresholds ThresholdConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// ThresholdConfig holds the tunable floors and cutoffs for the risk modules.
// Every value can be overridden per invocation through the run request; these
// are the defaults applied when a request leaves a knob unset.
type ThresholdConfig struct {
	DefaultCountry string // 2-letter ISO code the engine analyzes by default
	MinYear        int    // earliest tender year to include (0 = no lower bound)
	MaxYear        int    // latest tender year to include (0 = no upper bound)

	NonCompetitive NonCompetitiveThresholds
	Concentration  ConcentrationThresholds
	BidWindow      BidWindowThresholds
	Splitting      SplittingThresholds
}

// NonCompetitiveThresholds gates which suppliers enter the non-competitive
// summary. All three minimums must hold.
type NonCompetitiveThresholds struct {
	MinAwards      int     // minimum count of non-competitive wins
	MinDollarTotal float64 // minimum total non-competitive dollars
	MinSingleAward float64 // at least one single non-competitive award this large
}

// ConcentrationThresholds gates buyer-year-supplier concentration cases.
type ConcentrationThresholds struct {
	ShareThreshold   float64 // flag when count or dollar share exceeds this
	MinAnnualDollars float64 // and the supplier was paid at least this in the year
}

// BidWindowThresholds bounds the bidding-window distribution before the
// dynamic cutoff is derived from it.
type BidWindowThresholds struct {
	MinAwardValue float64 // ignore tenders below this value
	MaxWindowDays int     // windows longer than this are treated as data errors
	FlagQuantile  float64 // quantile of retained windows used as the flag cutoff
}

// SplittingThresholds parameterizes the contract-splitting clusterer.
type SplittingThresholds struct {
	ApprovalThreshold   float64 // supplier totals at or above this are in scope; awards below it form the pool
	TimeWindowDays      int     // max days between cluster members' award dates
	SimilarityThreshold float64 // minimum normalized-title similarity ratio
	MinClusterValue     float64 // minimum combined value of a retained cluster
	Workers             int     // parallel supplier workers
	BlockByMonth        bool    // pre-block pairwise comparisons by award month
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "tenderrisk"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Thresholds: ThresholdConfig{
			DefaultCountry: getEnv("ANALYSIS_COUNTRY", "MX"),
			MinYear:        getEnvAsInt("ANALYSIS_MIN_YEAR", 2019),
			MaxYear:        getEnvAsInt("ANALYSIS_MAX_YEAR", 0),
			NonCompetitive: NonCompetitiveThresholds{
				MinAwards:      getEnvAsInt("NONCOMP_MIN_AWARDS", 1),
				MinDollarTotal: getEnvAsFloat("NONCOMP_MIN_DOLLAR_TOTAL", 1_000_000),
				MinSingleAward: getEnvAsFloat("NONCOMP_MIN_SINGLE_AWARD", 1_000_000),
			},
			Concentration: ConcentrationThresholds{
				ShareThreshold:   getEnvAsFloat("CONCENTRATION_SHARE_THRESHOLD", 0.10),
				MinAnnualDollars: getEnvAsFloat("CONCENTRATION_MIN_ANNUAL_DOLLARS", 1_000_000),
			},
			BidWindow: BidWindowThresholds{
				MinAwardValue: getEnvAsFloat("BIDWINDOW_MIN_AWARD_VALUE", 1_000_000),
				MaxWindowDays: getEnvAsInt("BIDWINDOW_MAX_WINDOW_DAYS", 365),
				FlagQuantile:  getEnvAsFloat("BIDWINDOW_FLAG_QUANTILE", 0.10),
			},
			Splitting: SplittingThresholds{
				ApprovalThreshold:   getEnvAsFloat("SPLITTING_APPROVAL_THRESHOLD", 10_000_000),
				TimeWindowDays:      getEnvAsInt("SPLITTING_TIME_WINDOW_DAYS", 7),
				SimilarityThreshold: getEnvAsFloat("SPLITTING_SIMILARITY_THRESHOLD", 0.5),
				MinClusterValue:     getEnvAsFloat("SPLITTING_MIN_CLUSTER_VALUE", 1_000_000),
				Workers:             getEnvAsInt("SPLITTING_WORKERS", 4),
				BlockByMonth:        getEnvAsBool("SPLITTING_BLOCK_BY_MONTH", false),
			},
		},
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsFloat gets an environment variable as a float or returns a default value
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
