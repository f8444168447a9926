package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pavelanni/kinderquiz/internal/content"
	"github.com/pavelanni/kinderquiz/internal/events"
	appI18n "github.com/pavelanni/kinderquiz/internal/i18n"
	"github.com/pavelanni/kinderquiz/internal/model"
	"github.com/pavelanni/kinderquiz/internal/pronounce"
	"github.com/pavelanni/kinderquiz/internal/store"
)

func main() {
	loadDotEnv()
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kinderquiz",
		Short: "Micro-lessons and quizzes for young learners",
	}
	root.AddCommand(lessonCmd(), quizCmd(), sayCmd(), importCmd(), subjectsCmd())
	return root
}

const subjectHelp = "subject: vocabulary (english), arithmetic (math) or characters (chinese)"

func lessonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lesson <subject>",
		Short: "Show a page of lesson cards",
		Long:  "Show a random page of lesson cards.\n\n" + subjectHelp,
		Args:  cobra.ExactArgs(1),
		RunE:  runLesson,
	}
	f := cmd.Flags()
	f.Bool("once", false, "Print one page and exit")
	addSessionFlags(f)
	addContentFlags(f)
	addSpeechFlags(f)
	addLoggingFlags(f)
	return cmd
}

func quizCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz <subject>",
		Short: "Take a multiple-choice quiz",
		Long:  "Take a quiz of randomly drawn questions.\n\n" + subjectHelp,
		Args:  cobra.ExactArgs(1),
		RunE:  runQuiz,
	}
	f := cmd.Flags()
	addSessionFlags(f)
	addContentFlags(f)
	addSpeechFlags(f)
	addLoggingFlags(f)
	return cmd
}

func sayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "say <text>",
		Short: "Pronounce a word or phrase",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSay,
	}
	f := cmd.Flags()
	f.String("locale", model.LocaleEnglish, "Speech locale (en-US, zh-CN)")
	addSessionFlags(f)
	addSpeechFlags(f)
	addLoggingFlags(f)
	return cmd
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file or dir>...",
		Short: "Import content packs into the content database",
		Long: "Import <subject>.json or <subject>.yaml content packs into the SQLite content\n" +
			"database. A pack replaces its subject's stored content; unchanged files are skipped.",
		Args: cobra.MinimumNArgs(1),
		RunE: runImport,
	}
	f := cmd.Flags()
	f.String("content-db", "kinderquiz.db", "SQLite content database path")
	f.StringP("lang", "l", "en", "UI language (en, zh)")
	addLoggingFlags(f)
	return cmd
}

func subjectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subjects",
		Short: "List subjects and how much content each has",
		Args:  cobra.NoArgs,
		RunE:  runSubjects,
	}
	f := cmd.Flags()
	addSessionFlags(f)
	addContentFlags(f)
	addLoggingFlags(f)
	return cmd
}

func runSay(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	locale := v.GetString("locale")
	if _, err := pronounce.ResolveLocale(locale); err != nil {
		return err
	}
	speaker, err := newSpeaker(v)
	if err != nil {
		return err
	}
	gw := newGateway(v, speaker, events.Discard)
	defer gw.Close()

	gw.Pronounce(strings.Join(args, " "), locale)
	gw.Wait()
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	if err := appI18n.Init(uiLang(v)); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLang(cmd.Context(), uiLang(v))

	paths, err := packFiles(args)
	if err != nil {
		return err
	}

	db, err := store.New(v.GetString("content-db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	for _, p := range paths {
		res, err := db.ImportPack(p)
		if err != nil {
			return err
		}
		if res.Skipped {
			fmt.Fprintln(out, appI18n.Td(ctx, "SkippedPack", map[string]any{"Path": p}))
			continue
		}
		fmt.Fprintln(out, appI18n.Td(ctx, "ImportedPack", map[string]any{
			"Path":    p,
			"Subject": appI18n.SubjectName(ctx, res.Subject),
			"Lessons": res.Lessons,
			"Tests":   res.Tests,
		}))
	}
	return nil
}

var packExtensions = []string{".json", ".yaml", ".yml"}

// packFiles expands directories into the pack files they contain.
func packFiles(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || !slices.Contains(packExtensions, strings.ToLower(filepath.Ext(e.Name()))) {
				continue
			}
			if _, err := content.SubjectFromFilename(e.Name()); err != nil {
				slog.Warn("skipping file that does not name a subject", "file", e.Name())
				continue
			}
			paths = append(paths, filepath.Join(arg, e.Name()))
		}
	}
	return paths, nil
}

func runSubjects(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	lang := uiLang(v)
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLang(cmd.Context(), lang)

	repo, err := openRepository(v)
	if err != nil {
		return err
	}
	counts := repo.Counts()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, appI18n.T(ctx, "AppTitle"))
	for _, s := range model.Subjects {
		c := counts[s]
		fmt.Fprintf(out, "  %-11s %s: %s %s\n", s,
			appI18n.SubjectName(ctx, s),
			appI18n.Tp(ctx, "LessonsAvailable", c[0]),
			appI18n.Tp(ctx, "QuestionsAvailable", c[1]))
	}
	return nil
}
