package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/viper"

	"github.com/angeloszaimis/grocery-proxy/config"
)

var _ = Describe("Config", func() {
	var (
		tempDir string
		origDir string
	)

	BeforeEach(func() {
		var err error
		viper.Reset()
		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		tempDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tempDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Chdir(origDir)).To(Succeed())
		os.RemoveAll(tempDir)
		os.Unsetenv("RAPIDAPI_KEY")
		os.Unsetenv("SERVER_ADDRESS")
		viper.Reset()
	})

	Describe("Load", func() {
		Context("without a config file", func() {
			It("should use defaults", func() {
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal(":8000"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvDev))
				Expect(cfg.RapidAPI.Key).To(Equal(config.DefaultAPIKey))
				Expect(cfg.Upstream.Coles.URL).To(Equal(config.DefaultColesURL))
				Expect(cfg.Upstream.Woolworths.URL).To(Equal(config.DefaultWoolworthsURL))
				Expect(cfg.UpstreamTimeout()).To(Equal(30 * time.Second))
				Expect(cfg.ShutdownTimeout()).To(BeZero())
				Expect(cfg.CircuitBreaker.Enabled).To(BeFalse())
				Expect(cfg.Admin.Enabled).To(BeTrue())
				Expect(cfg.Tracing.Enabled).To(BeFalse())
			})

			It("should read the key from the environment", func() {
				os.Setenv("RAPIDAPI_KEY", "secret-from-env")
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.RapidAPI.Key).To(Equal("secret-from-env"))
			})

			It("should let the environment override the address", func() {
				os.Setenv("SERVER_ADDRESS", "127.0.0.1:8123")
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal("127.0.0.1:8123"))
			})
		})

		Context("with a valid config file", func() {
			BeforeEach(func() {
				configContent := `
server:
  address: ":8001"
  environment: "prod"
  shutdown_timeout: "5s"

logging:
  level: "debug"

rapidapi:
  key: "file-key"

upstream:
  timeout: "10s"
  coles:
    url: "http://localhost:9001"

circuit_breaker:
  enabled: true
  failure_threshold: 3
  reset_timeout: "1m"
`
				err := os.WriteFile(filepath.Join(tempDir, "config.yaml"), []byte(configContent), 0644)
				Expect(err).NotTo(HaveOccurred())
			})

			It("should load configuration successfully", func() {
				cfg, err := config.Load("")
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal(":8001"))
				Expect(cfg.Server.Environment).To(Equal(config.EnvProd))
				Expect(cfg.ShutdownTimeout()).To(Equal(5 * time.Second))
				Expect(cfg.Logging.Level).To(Equal(config.LogLevelDebug))
				Expect(cfg.RapidAPI.Key).To(Equal("file-key"))
				Expect(cfg.UpstreamTimeout()).To(Equal(10 * time.Second))
				Expect(cfg.Upstream.Coles.URL).To(Equal("http://localhost:9001"))
				Expect(cfg.Upstream.Woolworths.URL).To(Equal(config.DefaultWoolworthsURL))
				Expect(cfg.CircuitBreaker.FailureThreshold).To(Equal(3))
				Expect(cfg.ResetTimeout()).To(Equal(time.Minute))
			})

			It("should load an explicit file path", func() {
				explicit := filepath.Join(tempDir, "other.yaml")
				Expect(os.WriteFile(explicit, []byte("server:\n  address: \":8555\"\n"), 0644)).To(Succeed())

				cfg, err := config.Load(explicit)
				Expect(err).NotTo(HaveOccurred())
				Expect(cfg.Server.Address).To(Equal(":8555"))
			})
		})

		Context("with an invalid config file", func() {
			It("should reject an unknown environment", func() {
				Expect(os.WriteFile(filepath.Join(tempDir, "config.yaml"),
					[]byte("server:\n  environment: \"qa\"\n"), 0644)).To(Succeed())

				_, err := config.Load("")
				Expect(err).To(HaveOccurred())
			})

			It("should reject a non-http upstream URL", func() {
				Expect(os.WriteFile(filepath.Join(tempDir, "config.yaml"),
					[]byte("upstream:\n  woolworths:\n    url: \"ftp://example.com\"\n"), 0644)).To(Succeed())

				_, err := config.Load("")
				Expect(err).To(HaveOccurred())
			})

			It("should fail on a missing explicit file", func() {
				_, err := config.Load(filepath.Join(tempDir, "missing.yaml"))
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Validate", func() {
		var cfg *config.Config

		BeforeEach(func() {
			cfg = &config.Config{
				Server:   config.ServerConfig{Address: ":8000", Environment: config.EnvDev, ShutdownTimeout: "0s"},
				Logging:  config.LoggingConfig{Level: config.LogLevelInfo},
				RapidAPI: config.RapidAPIConfig{Key: "k"},
				Upstream: config.UpstreamConfig{
					Timeout:    "30s",
					Coles:      config.EndpointConfig{URL: config.DefaultColesURL},
					Woolworths: config.EndpointConfig{URL: config.DefaultWoolworthsURL},
				},
				Admin: config.AdminConfig{Enabled: true, Address: ":9090"},
			}
		})

		It("should accept a complete configuration", func() {
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should not require an API key", func() {
			cfg.RapidAPI.Key = ""
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should reject a malformed address", func() {
			cfg.Server.Address = "invalid:host:port"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject an unparsable timeout", func() {
			cfg.Upstream.Timeout = "soon"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a negative shutdown timeout", func() {
			cfg.Server.ShutdownTimeout = "-1s"
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should ignore circuit breaker settings while disabled", func() {
			cfg.CircuitBreaker = config.CircuitBreakerConfig{Enabled: false, FailureThreshold: 0}
			Expect(cfg.Validate()).To(Succeed())
		})

		It("should require a positive threshold when the circuit breaker is enabled", func() {
			cfg.CircuitBreaker = config.CircuitBreakerConfig{Enabled: true, FailureThreshold: 0, ResetTimeout: "1s"}
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should reject a sampling rate above one when tracing is enabled", func() {
			cfg.Tracing = config.TracingConfig{Enabled: true, Endpoint: "localhost:4317", SamplingRate: 1.5}
			Expect(cfg.Validate()).NotTo(Succeed())
		})

		It("should skip the admin address when admin is disabled", func() {
			cfg.Admin = config.AdminConfig{Enabled: false, Address: "nope"}
			Expect(cfg.Validate()).To(Succeed())
		})
	})
})
