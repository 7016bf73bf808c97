package config // package config loads application configuration from environment variables

import (
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"

    "github.com/rs/zerolog/log"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced by must(); the
// rest fall back to defaults that work for local development.
type Config struct {
    Env            string         // application environment (e.g. "dev", "prod")
    Port           string         // HTTP port to listen on
    DBUser         string         // database username
    DBPass         string         // database password (optional)
    DBHost         string         // database host address
    DBPort         string         // database port number
    DBName         string         // database name
    JWTSecret      string         // secret used to sign JWTs
    AccessTTLMin   int            // access token time-to-live in minutes
    RefreshTTLDays int            // refresh token time-to-live in days
    BcryptCost     int            // bcrypt cost for password hashing
    BookingTZ      *time.Location // zone in which reservation dates start at 00:00
    PageSize       int            // default page size of the club reservation list
    CORSOrigins    []string       // allowed CORS origins; empty allows all
    ShutdownGrace  time.Duration  // time allowed for in-flight requests on shutdown
}

// Load reads configuration values from environment variables and returns a
// Config.  Missing required variables cause the program to exit with a
// fatal log message.
func Load() Config {
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),
        BookingTZ:      loadLocation(envStr("BOOKING_TZ", "America/Argentina/Cordoba")),
        PageSize:       envInt("RESERVATION_PAGE_SIZE", 5),
        CORSOrigins:    splitList(envStr("CORS_ORIGINS", "")),
        ShutdownGrace:  envDur("SHUTDOWN_GRACE", 10*time.Second),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatal().Str("key", key).Msg("missing required env var")
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        log.Fatal().Str("key", key).Str("value", s).Msg("invalid int env var")
    }
    return n
}

// loadLocation falls back to UTC when the zone database does not know name.
func loadLocation(name string) *time.Location {
    loc, err := time.LoadLocation(name)
    if err != nil {
        log.Warn().Err(err).Str("tz", name).Msg("unknown BOOKING_TZ, using UTC")
        return time.UTC
    }
    return loc
}
