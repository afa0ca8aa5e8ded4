package skills

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

// SkillFileName is the file that marks a directory as a skill
const SkillFileName = "SKILL.md"

// Discovery handles skill discovery from configured directories
type Discovery struct {
	skillDirs  []string
	pluginDirs []pluginDirConfig
}

// pluginDirConfig represents a plugin directory with its prefix
type pluginDirConfig struct {
	dir    string
	prefix string
}

// DiscoveryOption is a function that configures a Discovery
type DiscoveryOption func(*Discovery) error

// WithSkillDirs sets custom skill directories
func WithSkillDirs(dirs ...string) DiscoveryOption {
	return func(d *Discovery) error {
		d.skillDirs = dirs
		return nil
	}
}

// WithDefaultDirs initializes with default skill directories
func WithDefaultDirs() DiscoveryOption {
	return func(d *Discovery) error {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return errors.Wrap(err, "failed to get user home directory")
		}
		d.skillDirs = []string{
			"./.skillet/skills",                          // Repo-local standalone (highest precedence)
			filepath.Join(homeDir, ".skillet", "skills"), // User-global standalone
		}

		d.pluginDirs = []pluginDirConfig{}
		d.addPluginDirs("./.skillet/plugins")
		d.addPluginDirs(filepath.Join(homeDir, ".skillet", "plugins"))

		return nil
	}
}

// addPluginDirs scans a plugins directory and adds all plugin skill directories.
// Supports nested org/repo directory structure.
func (d *Discovery) addPluginDirs(pluginsDir string) {
	_ = filepath.Walk(pluginsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || !info.IsDir() {
			return nil
		}

		skillsDir := filepath.Join(path, "skills")
		if _, err := os.Stat(skillsDir); err != nil {
			return nil
		}

		relPath, err := filepath.Rel(pluginsDir, path)
		if err != nil || relPath == "." {
			return nil
		}

		d.pluginDirs = append(d.pluginDirs, pluginDirConfig{
			dir:    skillsDir,
			prefix: filepath.ToSlash(relPath) + "/",
		})

		return filepath.SkipDir
	})
}

// NewDiscovery creates a new skill discovery instance
func NewDiscovery(opts ...DiscoveryOption) (*Discovery, error) {
	d := &Discovery{}

	if len(opts) == 0 {
		if err := WithDefaultDirs()(d); err != nil {
			return nil, err
		}
	} else {
		for _, opt := range opts {
			if err := opt(d); err != nil {
				return nil, err
			}
		}
	}

	return d, nil
}

// Dirs returns every directory this discovery scans, in precedence order
func (d *Discovery) Dirs() []string {
	dirs := make([]string, 0, len(d.skillDirs)+len(d.pluginDirs))
	dirs = append(dirs, d.skillDirs...)
	for _, p := range d.pluginDirs {
		dirs = append(dirs, p.dir)
	}
	return dirs
}

// DiscoverSkills finds all available skills from configured directories.
// Skills that fail to load are skipped; their errors are aggregated into the
// returned error, which is non-nil even when some skills were found.
func (d *Discovery) DiscoverSkills() (map[string]*Skill, error) {
	skills := make(map[string]*Skill)
	var result *multierror.Error

	for _, dir := range d.skillDirs {
		result = multierror.Append(result, d.discoverSkillsFromDir(dir, "", skills))
	}

	for _, pluginDir := range d.pluginDirs {
		result = multierror.Append(result, d.discoverSkillsFromDir(pluginDir.dir, pluginDir.prefix, skills))
	}

	return skills, result.ErrorOrNil()
}

// discoverSkillsFromDir discovers skills from a directory with optional name prefix
func (d *Discovery) discoverSkillsFromDir(dir, prefix string, skills map[string]*Skill) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var result *multierror.Error
	for _, entry := range entries {
		entryPath := filepath.Join(dir, entry.Name())

		info, err := os.Stat(entryPath)
		if err != nil || !info.IsDir() {
			continue
		}

		skillPath := filepath.Join(entryPath, SkillFileName)
		if _, err := os.Stat(skillPath); err != nil {
			continue
		}

		skill, err := LoadSkill(skillPath)
		if err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "failed to load %s", skillPath))
			continue
		}

		skillName := skill.Name
		if prefix != "" {
			skillName = prefix + skill.Name
		}

		if _, exists := skills[skillName]; !exists {
			skill.Name = skillName
			skill.Directory = entryPath
			skills[skillName] = skill
		}
	}

	return result.ErrorOrNil()
}

// LoadSkill loads a single skill from its SKILL.md file
func LoadSkill(skillPath string) (*Skill, error) {
	content, err := os.ReadFile(skillPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read skill file")
	}

	md := goldmark.New(
		goldmark.WithExtensions(meta.Meta),
	)

	var buf bytes.Buffer
	pctx := parser.NewContext()

	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		return nil, errors.Wrap(err, "failed to parse markdown")
	}

	metaData, err := meta.TryGet(pctx)
	if err != nil {
		return nil, errors.Wrap(err, "invalid frontmatter")
	}
	if len(metaData) == 0 {
		return nil, errors.New("missing frontmatter")
	}

	var frontmatter Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &frontmatter,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create frontmatter decoder")
	}
	if err := decoder.Decode(metaData); err != nil {
		return nil, errors.Wrap(err, "failed to decode frontmatter")
	}

	if frontmatter.Name == "" {
		return nil, errors.New("skill name is required in frontmatter")
	}
	if frontmatter.Description == "" {
		return nil, errors.New("skill description is required in frontmatter")
	}

	var timeout time.Duration
	if frontmatter.Timeout != "" {
		timeout, err = time.ParseDuration(frontmatter.Timeout)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid timeout %q", frontmatter.Timeout)
		}
	}

	return &Skill{
		Name:         frontmatter.Name,
		Description:  frontmatter.Description,
		Capabilities: frontmatter.Capabilities,
		Directory:    filepath.Dir(skillPath),
		Content:      extractBodyContent(string(content)),
		Entrypoint:   frontmatter.Entrypoint,
		Timeout:      timeout,
	}, nil
}

// extractBodyContent removes YAML frontmatter and returns the body
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}

// FindSkillDirs returns every directory below root that contains a SKILL.md,
// ignoring VCS metadata and node_modules
func FindSkillDirs(root string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(root), "**/"+SkillFileName)
	if err != nil {
		return nil, errors.Wrap(err, "failed to search for skills")
	}

	var dirs []string
	for _, match := range matches {
		if isIgnoredPath(match) {
			continue
		}
		dirs = append(dirs, filepath.Join(root, filepath.FromSlash(path.Dir(match))))
	}
	sort.Strings(dirs)

	return dirs, nil
}

func isIgnoredPath(p string) bool {
	for _, segment := range strings.Split(p, "/") {
		if segment == ".git" || segment == "node_modules" {
			return true
		}
	}
	return false
}

// Load registers every discovered skill into reg
func Load(ctx context.Context, reg *Registry, skills map[string]*Skill) error {
	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)

	var result *multierror.Error
	for _, name := range names {
		skill := skills[name]
		if err := reg.Register(ctx, name, skill.Unit(), skill.Descriptor()); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
