package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// ErrNotFound is returned when the configuration file does not exist.
var ErrNotFound = errors.New("configuration file not found")

// DeployConfig describes one container app deployment. It is loaded once at
// startup and never mutated afterwards.
type DeployConfig struct {
	Region                   string `json:"region" yaml:"region"`
	ResourceGroup            string `json:"resourceGroup" yaml:"resourceGroup"`
	ContainerAppEnv          string `json:"containerAppEnv" yaml:"containerAppEnv"`
	ContainerAppName         string `json:"containerAppName" yaml:"containerAppName"`
	ContainerImage           string `json:"containerImage" yaml:"containerImage"`
	ContainerImageWithoutTag string `json:"containerImageWithoutTag" yaml:"containerImageWithoutTag"`
}

// Load reads and parses the configuration file. JSON is the default format,
// files with a .yaml/.yml extension are parsed as YAML.
func Load(configFile string) (cfg *DeployConfig, err error) {
	start := time.Now()

	var data []byte
	if data, err = ioutil.ReadFile(configFile); err != nil {
		if os.IsNotExist(err) {
			err = fmt.Errorf("%w: %s", ErrNotFound, configFile)
		}
		return
	}

	var config DeployConfig
	switch strings.ToLower(filepath.Ext(configFile)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		err = fmt.Errorf("failed to parse configuration %s: %w", configFile, err)
		return
	}

	if err = config.Validate(); err != nil {
		return
	}

	end := time.Since(start)
	zap.L().Info("configuration loaded", zap.Duration("in", end), zap.String("from", configFile))

	cfg = &config
	return
}

// Validate reports every missing required key at once.
func (c *DeployConfig) Validate() (err error) {
	missing := []string{}
	for key, value := range map[string]string{
		"region":                   c.Region,
		"resourceGroup":            c.ResourceGroup,
		"containerAppEnv":          c.ContainerAppEnv,
		"containerAppName":         c.ContainerAppName,
		"containerImage":           c.ContainerImage,
		"containerImageWithoutTag": c.ContainerImageWithoutTag,
	} {
		if len(value) == 0 {
			missing = append(missing, key)
		}
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		err = fmt.Errorf("configuration is missing required keys: %s", strings.Join(missing, ", "))
	}
	return
}
