package deploy

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes the remote host and the compose project deployed on it.
type Config struct {
	SSH      SSHConfig      `yaml:"ssh"`
	Project  ProjectConfig  `yaml:"project"`
	Wait     WaitConfig     `yaml:"wait"`
	Database DatabaseConfig `yaml:"database"`
}

type SSHConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	KeyFile         string        `yaml:"key_file"`
	KnownHosts      string        `yaml:"known_hosts"`
	InsecureHostKey bool          `yaml:"insecure_host_key"`
	Timeout         time.Duration `yaml:"timeout"`
}

type ProjectConfig struct {
	Dir         string `yaml:"dir"`
	RepoURL     string `yaml:"repo_url"`
	Branch      string `yaml:"branch"`
	ComposeFile string `yaml:"compose_file"`
	AppURL      string `yaml:"app_url"`
	// Ports are checked by `status` and shown as service URLs.
	Ports []int `yaml:"ports"`
}

type WaitConfig struct {
	Attempts int           `yaml:"attempts"`
	Interval time.Duration `yaml:"interval"`
}

// DatabaseConfig addresses the MySQL container inspected by init-db and verify-db.
type DatabaseConfig struct {
	Container string `yaml:"container"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Name      string `yaml:"name"`
	Table     string `yaml:"table"`
	Volume    string `yaml:"volume"`
}

// Load reads the YAML file at path, applies DEPLOY_* environment overrides
// and defaults, then validates. A missing file is not an error; the
// environment alone may describe the target.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	if err := cfg.overrideWithEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) overrideWithEnv() error {
	strs := map[string]*string{
		"DEPLOY_HOST":        &c.SSH.Host,
		"DEPLOY_USER":        &c.SSH.User,
		"DEPLOY_PASSWORD":    &c.SSH.Password,
		"DEPLOY_KEY_FILE":    &c.SSH.KeyFile,
		"DEPLOY_KNOWN_HOSTS": &c.SSH.KnownHosts,
		"DEPLOY_DIR":         &c.Project.Dir,
		"DEPLOY_REPO_URL":    &c.Project.RepoURL,
		"DEPLOY_BRANCH":      &c.Project.Branch,
		"DEPLOY_DB_PASSWORD": &c.Database.Password,
	}
	for key, dst := range strs {
		if val := os.Getenv(key); val != "" {
			*dst = val
		}
	}

	if val := os.Getenv("DEPLOY_PORT"); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("DEPLOY_PORT: %w", err)
		}
		c.SSH.Port = port
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.SSH.Port == 0 {
		c.SSH.Port = 22
	}
	if c.SSH.Timeout == 0 {
		c.SSH.Timeout = 15 * time.Second
	}
	if c.SSH.KnownHosts == "" && !c.SSH.InsecureHostKey {
		if home, err := os.UserHomeDir(); err == nil {
			c.SSH.KnownHosts = filepath.Join(home, ".ssh", "known_hosts")
		}
	}

	if c.Project.Branch == "" {
		c.Project.Branch = "master"
	}
	if c.Project.ComposeFile == "" {
		c.Project.ComposeFile = "docker-compose.yml"
	}
	if c.Project.AppURL == "" {
		c.Project.AppURL = "http://localhost:8080"
	}
	if len(c.Project.Ports) == 0 {
		c.Project.Ports = []int{8080, 8081, 3307}
	}

	if c.Wait.Attempts == 0 {
		c.Wait.Attempts = 12
	}
	if c.Wait.Interval == 0 {
		c.Wait.Interval = 5 * time.Second
	}

	project := filepath.Base(strings.TrimRight(c.Project.Dir, "/"))
	if c.Database.Container == "" {
		c.Database.Container = project + "-mysql-1"
	}
	if c.Database.Volume == "" {
		c.Database.Volume = project + "_mysql_data"
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Table == "" {
		c.Database.Table = "inventory"
	}
}

// Validate checks that the target host and credentials are present.
func (c *Config) Validate() error {
	if c.SSH.Host == "" {
		return errors.New("ssh host is required")
	}
	if c.SSH.Port <= 0 || c.SSH.Port > 65535 {
		return fmt.Errorf("invalid ssh port: %d", c.SSH.Port)
	}
	if c.SSH.User == "" {
		return errors.New("ssh user is required")
	}
	if c.SSH.Password == "" && c.SSH.KeyFile == "" {
		return errors.New("ssh password or key_file is required")
	}
	if !c.SSH.InsecureHostKey && c.SSH.KnownHosts == "" {
		return errors.New("ssh known_hosts is required unless insecure_host_key is set")
	}
	if c.Project.Dir == "" {
		return errors.New("project dir is required")
	}
	if c.Wait.Attempts < 1 {
		return fmt.Errorf("invalid wait attempts: %d", c.Wait.Attempts)
	}
	return nil
}

// Addr is host:port of the SSH endpoint.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.SSH.Host, c.SSH.Port)
}
