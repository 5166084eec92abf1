/*
Package cmd provides access to build on the sentropy CLI.

This package makes it easy to create custom sentropy binaries that supply
their own sentiment classifier or linguistic services. A binary that only
runs the transfer/reprocess/cache subcommands requires simply:

	func main() {
		cmd.Execute()
	}

To create a binary that can run the `process` subcommand, register the
in-process collaborators first:

	func main() {
		cmd.Classifier(myclassifier.New())
		cmd.Linguistics(cmd.LinguisticServices{...})
		cmd.Execute()
	}

cmd.Execute() blocks until the program has completed (usually by being
shut down gracefully via SIGINT).
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Sentimentron/sentropy"
	"github.com/Sentimentron/sentropy/internal/cachelayer"
	"github.com/Sentimentron/sentropy/internal/classifier"
	"github.com/Sentimentron/sentropy/internal/domainresolve"
	"github.com/Sentimentron/sentropy/internal/linguistics"
	"github.com/Sentimentron/sentropy/internal/notify"
	"github.com/Sentimentron/sentropy/internal/objectstore"
	"github.com/Sentimentron/sentropy/internal/pipeline"
	"github.com/Sentimentron/sentropy/internal/presenter"
	"github.com/Sentimentron/sentropy/internal/query"
	"github.com/Sentimentron/sentropy/internal/queue"
	"github.com/Sentimentron/sentropy/internal/store"
	"github.com/Sentimentron/sentropy/internal/textextractor"
	"github.com/Sentimentron/sentropy/internal/transfer"
)

// LinguisticServices bundles the in-process linguistic collaborators the
// `process` subcommand needs. Every field must be non-nil.
type LinguisticServices struct {
	Sentences linguistics.SentenceTokenizer
	Words     linguistics.WordTokenizer
	Tags      linguistics.POSTagger
	Terms     linguistics.TermExtractor
	Dates     linguistics.DateMiner
	Language  linguistics.LanguageIdentifier
}

// Classifier sets the global sentiment classifier for this process.
func Classifier(c classifier.Classifier) {
	commander.Classifier = c
}

// Linguistics sets the global linguistic services for this process.
func Linguistics(l LinguisticServices) {
	commander.Linguistics = &l
}

// Notifier sets the global completion-email sender for this process,
// replacing the default SMTP relay adapter.
func Notifier(n notify.Notifier) {
	commander.Notifier = n
}

// Execute will run the command specified by the command line.
func Execute() {
	if err := commander.Execute(); err != nil {
		os.Exit(1)
	}
}

var commander struct {
	*cobra.Command
	Classifier  classifier.Classifier
	Linguistics *LinguisticServices
	Notifier    notify.Notifier
	Log         *zap.SugaredLogger
}

// config is potentially set by the --config flag below.
var config string

func initCommand() {
	if config != "" {
		if err := sentropy.ReadConfigFile(config); err != nil {
			panic(err.Error())
		}
	}

	if commander.Log == nil {
		logger, err := zap.NewProduction()
		if err != nil {
			fatalf("Failed to build logger: %v", err)
		}
		commander.Log = logger.Sugar()
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Printf(format, args...)
	fmt.Println()
	os.Exit(1)
}

// awaitInterrupt blocks until SIGINT arrives.
func awaitInterrupt() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT)
	<-sig
}

func openStore(ctx context.Context) *store.Store {
	s, err := store.NewStore(ctx)
	if err != nil {
		fatalf("Failed to connect to database: %v", err)
	}
	return s
}

func openQueue(ctx context.Context) queue.Queue {
	q, err := queue.NewNatsQueue(ctx)
	if err != nil {
		fatalf("Failed to connect to queue: %v", err)
	}
	return q
}

func openObjects(ctx context.Context) *objectstore.S3Store {
	o, err := objectstore.NewS3Store(ctx)
	if err != nil {
		fatalf("Failed to connect to object store: %v", err)
	}
	return o
}

func buildPipeline(ctx context.Context, s *store.Store) *pipeline.Pipeline {
	if commander.Classifier == nil {
		fatalf("No classifier registered; link one in with cmd.Classifier before Execute")
	}
	if commander.Linguistics == nil {
		fatalf("No linguistic services registered; link them in with cmd.Linguistics before Execute")
	}

	extractor, err := textextractor.NewClient()
	if err != nil {
		fatalf("Failed to build text-extractor client: %v", err)
	}

	keywordCache, err := cachelayer.NewKeywordCache(sentropy.Config.Pipeline.KeywordCacheSize, s)
	if err != nil {
		fatalf("Failed to build keyword cache: %v", err)
	}
	domainCache, err := cachelayer.NewDomainCache(sentropy.Config.Pipeline.DomainCacheSize, s)
	if err != nil {
		fatalf("Failed to build domain cache: %v", err)
	}

	stopList := map[string]bool{}
	if path := sentropy.Config.Pipeline.StopListPath; path != "" {
		stopList, err = pipeline.LoadStopList(path)
		if err != nil {
			fatalf("Failed to load stop list from %v: %v", path, err)
		}
	}

	l := commander.Linguistics
	return &pipeline.Pipeline{
		Store:      s,
		Domains:    domainresolve.New(domainCache),
		Keywords:   keywordCache,
		Extractor:  extractor,
		Classifier: commander.Classifier,
		Sentences:  l.Sentences,
		Words:      l.Words,
		Tags:       l.Tags,
		Terms:      l.Terms,
		Dates:      l.Dates,
		Language:   l.Language,
		StopList:   stopList,
	}
}

func init() {
	sentropyCommand := &cobra.Command{
		Use: "sentropy",
	}

	sentropyCommand.PersistentFlags().StringVarP(&config,
		"config", "c", "", "path to a config file to load")

	transferCommand := &cobra.Command{
		Use:   "transfer",
		Short: "drain the crawl-queue into raw articles and the process-queue",
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()

			ctx, cancel := context.WithCancel(context.Background())
			s := openStore(ctx)
			defer s.Close()
			q := openQueue(ctx)
			defer q.Close()
			objects := openObjects(ctx)

			w := transfer.NewWorker(s, objects, q, sentropy.Config.ObjectStore.ArchiveBucket)
			done := make(chan struct{})
			go func() {
				defer close(done)
				for ctx.Err() == nil {
					if err := w.Run(ctx); err != nil && ctx.Err() == nil {
						commander.Log.Warnw("transfer", "error", err)
					}
				}
			}()

			awaitInterrupt()
			cancel()
			<-done
		},
	}
	sentropyCommand.AddCommand(transferCommand)

	var multi int
	processCommand := &cobra.Command{
		Use:   "process",
		Short: "consume the process-queue, enriching one article per message",
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()

			ctx := context.Background()
			s := openStore(ctx)
			defer s.Close()
			q := openQueue(ctx)
			defer q.Close()

			w := &pipeline.Worker{
				Pipeline: buildPipeline(ctx, s),
				Queue:    q,
				Log:      commander.Log,
			}
			if multi <= 1 {
				multi = 1
			}
			w.Start(multi)

			awaitInterrupt()
			w.Stop()
		},
	}
	processCommand.Flags().IntVarP(&multi, "multi", "m", 1, "number of concurrent pipeline workers")
	sentropyCommand.AddCommand(processCommand)

	var cliQuery string
	queryCommand := &cobra.Command{
		Use:   "query",
		Short: "consume the query-queue, or run one query with --cli",
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()

			ctx := context.Background()
			s := openStore(ctx)
			defer s.Close()

			executor := &query.Executor{Store: s}

			if cliQuery != "" {
				result, err := executor.Run(ctx, cliQuery)
				if err != nil {
					fatalf("Query failed: %v", err)
				}
				out, err := json.MarshalIndent(result, "", "  ")
				if err != nil {
					fatalf("Failed to render result: %v", err)
				}
				fmt.Println(string(out))
				return
			}

			q := openQueue(ctx)
			defer q.Close()
			objects := openObjects(ctx)

			notifier := commander.Notifier
			if notifier == nil && sentropy.Config.Notify.SMTPAddr != "" {
				notifier = notify.NewSMTPNotifier()
			}

			w := &query.Worker{
				Executor: executor,
				Presenter: &presenter.Presenter{
					Store:    s,
					Objects:  objects,
					Notifier: notifier,
				},
				Queries: s,
				Queue:   q,
				Log:     commander.Log,
			}
			w.Start(0)

			awaitInterrupt()
			w.Stop()
		},
	}
	queryCommand.Flags().StringVarP(&cliQuery, "cli", "q", "", "run this query text once and print the result")
	sentropyCommand.AddCommand(queryCommand)

	var submitText, submitEmail string
	submitCommand := &cobra.Command{
		Use:   "submit",
		Short: "record a user query and enqueue it on the query-queue",
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()

			if submitText == "" {
				fatalf("Query text needed to execute; add one with --text/-t")
			}

			ctx := context.Background()
			s := openStore(ctx)
			defer s.Close()
			q := openQueue(ctx)
			defer q.Close()

			id, err := s.InsertUserQuery(ctx, submitText, submitEmail)
			if err != nil {
				fatalf("Failed to record query: %v", err)
			}
			if err := q.Publish(ctx, sentropy.Config.Queue.QueryQueueName, id); err != nil {
				fatalf("Failed to enqueue query %v: %v", id, err)
			}
			fmt.Printf("Enqueued query %v\n", id)
		},
	}
	submitCommand.Flags().StringVarP(&submitText, "text", "t", "", "query text to submit")
	submitCommand.Flags().StringVarP(&submitEmail, "email", "e", "", "address to notify on completion")
	sentropyCommand.AddCommand(submitCommand)

	reprocessCommand := &cobra.Command{
		Use:   "reprocess",
		Short: "re-enqueue every still-unprocessed raw article",
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()

			ctx := context.Background()
			s := openStore(ctx)
			defer s.Close()
			q := openQueue(ctx)
			defer q.Close()

			ids, err := s.UnprocessedRawArticleIDs(ctx)
			if err != nil {
				fatalf("Failed to list unprocessed raw articles: %v", err)
			}
			for _, id := range ids {
				if err := q.Publish(ctx, sentropy.Config.Queue.ProcessQueueName, id); err != nil {
					fatalf("Failed to enqueue raw article %v: %v", id, err)
				}
			}
			fmt.Printf("Re-enqueued %v raw article(s)\n", len(ids))
		},
	}
	sentropyCommand.AddCommand(reprocessCommand)

	cacheKeywordsCommand := &cobra.Command{
		Use:   "cache-keywords",
		Short: "scan the keyword table into a warm cache and report its size",
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()

			ctx := context.Background()
			s := openStore(ctx)
			defer s.Close()

			cache, err := cachelayer.NewKeywordCache(sentropy.Config.Pipeline.KeywordCacheSize, s)
			if err != nil {
				fatalf("Failed to build keyword cache: %v", err)
			}
			if err := s.ScanKeywords(ctx, func(word string, id int64) error {
				cache.Warm(word, id)
				return nil
			}); err != nil {
				fatalf("Failed to scan keywords: %v", err)
			}
			fmt.Printf("Warmed %v keyword(s)\n", cache.Len())
		},
	}
	sentropyCommand.AddCommand(cacheKeywordsCommand)

	cacheDomainsCommand := &cobra.Command{
		Use:   "cache-domains",
		Short: "scan the domain table into a warm cache and report its size",
		Run: func(cmd *cobra.Command, args []string) {
			initCommand()

			ctx := context.Background()
			s := openStore(ctx)
			defer s.Close()

			cache, err := cachelayer.NewDomainCache(sentropy.Config.Pipeline.DomainCacheSize, s)
			if err != nil {
				fatalf("Failed to build domain cache: %v", err)
			}
			if err := s.ScanDomains(ctx, func(key string, id int64) error {
				cache.Warm(key, id)
				return nil
			}); err != nil {
				fatalf("Failed to scan domains: %v", err)
			}
			fmt.Printf("Warmed %v domain(s)\n", cache.Len())
		},
	}
	sentropyCommand.AddCommand(cacheDomainsCommand)

	commander.Command = sentropyCommand
}
