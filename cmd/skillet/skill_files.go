package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jingkaihe/skillet/pkg/presenter"
	"github.com/jingkaihe/skillet/pkg/skills"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// SkillAddConfig holds configuration for the add command
type SkillAddConfig struct {
	Global bool
	Force  bool
}

// NewSkillAddConfig creates a SkillAddConfig with default values
func NewSkillAddConfig() *SkillAddConfig {
	return &SkillAddConfig{}
}

// SkillRemoveConfig holds configuration for the remove command
type SkillRemoveConfig struct {
	Global bool
	Yes    bool
}

// NewSkillRemoveConfig creates a SkillRemoveConfig with default values
func NewSkillRemoveConfig() *SkillRemoveConfig {
	return &SkillRemoveConfig{}
}

var addCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Install skills from a local directory",
	Long: `Install every skill found under a local directory. Each directory holding a
SKILL.md file is copied into the local ./.skillet/skills directory, or the
global ~/.skillet/skills directory with -g.

Examples:
  skillet add ./my-skills
  skillet add ~/src/team-skills/pdf -g`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getSkillAddConfigFromFlags(cmd)

		skillsDir, err := getSkillsDir(config.Global)
		if err != nil {
			presenter.Error(err, "Failed to determine skills directory")
			os.Exit(1)
		}

		installed, err := installSkills(args[0], skillsDir, config.Force)
		if err != nil {
			presenter.Error(err, "Failed to install skills")
			os.Exit(1)
		}
		if installed == 0 {
			presenter.Warning("No skills installed")
			return
		}
		presenter.Info(fmt.Sprintf("Successfully installed %d skill(s)", installed))
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <skill-name>",
	Short: "Remove an installed skill",
	Long: `Remove an installed skill directory by name.

Examples:
  skillet remove pdf
  skillet remove pdf -g --yes`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		config := getSkillRemoveConfigFromFlags(cmd)

		skillsDir, err := getSkillsDir(config.Global)
		if err != nil {
			presenter.Error(err, "Failed to determine skills directory")
			os.Exit(1)
		}

		if !config.Yes && !presenter.Confirm(fmt.Sprintf("Remove skill '%s' from %s?", args[0], skillsDir)) {
			presenter.Info("Aborted")
			return
		}

		removed, err := removeSkill(skillsDir, args[0])
		if err != nil {
			presenter.Error(err, "Failed to remove skill")
			os.Exit(1)
		}
		presenter.Success(fmt.Sprintf("Removed skill '%s' from %s", args[0], removed))
	},
}

func init() {
	addDefaults := NewSkillAddConfig()
	addCmd.Flags().BoolP("global", "g", addDefaults.Global, "Install to the global ~/.skillet/skills directory instead of ./.skillet/skills")
	addCmd.Flags().BoolP("force", "f", addDefaults.Force, "Overwrite skills that are already installed")

	removeDefaults := NewSkillRemoveConfig()
	removeCmd.Flags().BoolP("global", "g", removeDefaults.Global, "Remove from the global ~/.skillet/skills directory instead of ./.skillet/skills")
	removeCmd.Flags().BoolP("yes", "y", removeDefaults.Yes, "Do not ask for confirmation")
}

func getSkillAddConfigFromFlags(cmd *cobra.Command) *SkillAddConfig {
	config := NewSkillAddConfig()
	if global, err := cmd.Flags().GetBool("global"); err == nil {
		config.Global = global
	}
	if force, err := cmd.Flags().GetBool("force"); err == nil {
		config.Force = force
	}
	return config
}

func getSkillRemoveConfigFromFlags(cmd *cobra.Command) *SkillRemoveConfig {
	config := NewSkillRemoveConfig()
	if global, err := cmd.Flags().GetBool("global"); err == nil {
		config.Global = global
	}
	if yes, err := cmd.Flags().GetBool("yes"); err == nil {
		config.Yes = yes
	}
	return config
}

func getSkillsDir(global bool) (string, error) {
	if global {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", errors.Wrap(err, "failed to get user home directory")
		}
		return filepath.Join(homeDir, ".skillet", "skills"), nil
	}
	return filepath.Join(".skillet", "skills"), nil
}

// installSkills copies every skill directory under src into skillsDir and
// returns how many were installed. Invalid SKILL.md files are reported and skipped.
func installSkills(src, skillsDir string, force bool) (int, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, errors.Wrapf(err, "cannot read %s", src)
	}
	if !info.IsDir() {
		return 0, errors.Errorf("%s is not a directory", src)
	}

	skillDirs, err := skills.FindSkillDirs(src)
	if err != nil {
		return 0, errors.Wrap(err, "failed to find skills")
	}
	if len(skillDirs) == 0 {
		return 0, errors.Errorf("no %s found under %s", skills.SkillFileName, src)
	}

	if err := os.MkdirAll(skillsDir, 0o755); err != nil {
		return 0, errors.Wrap(err, "failed to create skills directory")
	}

	installed := 0
	for _, dir := range skillDirs {
		if _, err := skills.LoadSkill(filepath.Join(dir, skills.SkillFileName)); err != nil {
			presenter.Warning(fmt.Sprintf("Skipping %s: %v", dir, err))
			continue
		}

		skillName := filepath.Base(dir)
		destDir := filepath.Join(skillsDir, skillName)

		if _, err := os.Stat(destDir); err == nil {
			if !force {
				presenter.Warning(fmt.Sprintf("Skill '%s' already exists, skipping", skillName))
				continue
			}
			if err := os.RemoveAll(destDir); err != nil {
				return installed, errors.Wrapf(err, "failed to replace skill '%s'", skillName)
			}
		}

		if err := copyDir(dir, destDir); err != nil {
			presenter.Error(err, fmt.Sprintf("Failed to install skill '%s'", skillName))
			continue
		}

		installed++
		presenter.Success(fmt.Sprintf("Installed skill '%s' to %s", skillName, destDir))
	}

	return installed, nil
}

// removeSkill deletes skillsDir/name and returns the removed path
func removeSkill(skillsDir, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", errors.Errorf("invalid skill name %q", name)
	}

	skillDir := filepath.Join(skillsDir, name)
	if _, err := os.Stat(filepath.Join(skillDir, skills.SkillFileName)); os.IsNotExist(err) {
		return "", errors.Errorf("skill '%s' not found in %s", name, skillsDir)
	}

	if err := os.RemoveAll(skillDir); err != nil {
		return "", errors.Wrapf(err, "failed to remove skill '%s'", name)
	}
	return skillDir, nil
}

func copyDir(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		destPath := filepath.Join(dst, relPath)

		if info.IsDir() {
			return os.MkdirAll(destPath, info.Mode())
		}
		return copyFile(path, destPath)
	})
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return err
	}

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
