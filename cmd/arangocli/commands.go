package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"github.com/suar-net/arango-go/arango"
	"github.com/suar-net/arango-go/internal/config"
	"github.com/suar-net/arango-go/protocol"
)

const (
	methodFlagName  = "method"
	pathFlagName    = "path"
	bodyFlagName    = "body"
	headerFlagName  = "header"
	queryFlagName   = "query"
	timeoutFlagName = "timeout"
)

func connect(c *cli.Context) (*protocol.Connection, error) {
	cfg, err := config.LoadArangoConfig()
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	if c.GlobalBool("verbose") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.DebugLevel)
	}

	return protocol.NewConnection(protocol.ConnectionOptions{
		Alias:        cfg.Alias,
		Hostname:     cfg.Host,
		Port:         cfg.Port,
		IsSecured:    cfg.Secure,
		DatabaseName: cfg.Database,
		Username:     cfg.User,
		Password:     cfg.Pass,
		JWTSecret:    cfg.JWTSecret,
		UseWebProxy:  cfg.UseWebProxy,
		Logger:       &logger,
	})
}

// parsePairs splits "key=value" (or "key:value" for headers) arguments.
func parsePairs(pairs []string, seps string) (map[string][]string, error) {
	out := map[string][]string{}
	for _, pair := range pairs {
		idx := strings.IndexAny(pair, seps)
		if idx <= 0 {
			return nil, errors.Errorf("'%s' is not in key%svalue form", pair, seps[:1])
		}
		key := strings.TrimSpace(pair[:idx])
		out[key] = append(out[key], strings.TrimSpace(pair[idx+1:]))
	}
	return out, nil
}

func buildRequest(c *cli.Context) (*protocol.Request, error) {
	request := protocol.NewRequest(protocol.HTTPMethod(strings.ToUpper(c.String(methodFlagName))), c.String(pathFlagName))

	headers, err := parsePairs(c.StringSlice(headerFlagName), "=:")
	if err != nil {
		return nil, errors.Wrap(err, "parsing headers")
	}
	for key, values := range headers {
		for _, v := range values {
			request.Headers.Add(key, v)
		}
	}

	query, err := parsePairs(c.StringSlice(queryFlagName), "=")
	if err != nil {
		return nil, errors.Wrap(err, "parsing query")
	}
	for key, values := range query {
		request.Query[key] = values
	}

	request.Body = c.String(bodyFlagName)
	return request, request.Validate()
}

func Send() cli.Command {
	return cli.Command{
		Name:  "send",
		Usage: "send one request and print the status and body",
		Flags: []cli.Flag{
			cli.StringFlag{
				Name:  methodFlagName,
				Value: "GET",
				Usage: "HTTP method",
			},
			cli.StringFlag{
				Name:  pathFlagName,
				Usage: "path relative to the base URI, e.g. _api/version",
			},
			cli.StringFlag{
				Name:  bodyFlagName,
				Usage: "raw request body",
			},
			cli.StringSliceFlag{
				Name:  headerFlagName,
				Usage: "request header as key=value, repeatable",
			},
			cli.StringSliceFlag{
				Name:  queryFlagName,
				Usage: "query parameter as key=value, repeatable",
			},
			cli.DurationFlag{
				Name:  timeoutFlagName,
				Value: 30 * time.Second,
				Usage: "request timeout",
			},
		},
		Before: func(c *cli.Context) error {
			if c.String(pathFlagName) == "" {
				return errors.New("--path is required")
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			request, err := buildRequest(c)
			if err != nil {
				return err
			}
			conn, err := connect(c)
			if err != nil {
				return errors.Wrap(err, "configuring connection")
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration(timeoutFlagName))
			defer cancel()

			resp, err := conn.Send(ctx, request)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "%d %s\n", resp.StatusCode(), resp.Outcome())
			if resp.Body() != "" {
				fmt.Fprintln(c.App.Writer, resp.Body())
			}
			if arangoErr := resp.Err(); arangoErr != nil {
				return arangoErr
			}
			return nil
		},
	}
}

func Version() cli.Command {
	return cli.Command{
		Name:  "version",
		Usage: "print the ArangoDB server version",
		Action: func(c *cli.Context) error {
			conn, err := connect(c)
			if err != nil {
				return errors.Wrap(err, "configuring connection")
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			info, err := arango.NewClient(conn).Version(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s %s (%s) at %s\n", info.Server, info.Version, info.License, conn.BaseURI())
			return nil
		},
	}
}
