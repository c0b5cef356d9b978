package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aryan0dhankhar/minilibrary/internal/domain"
	"github.com/aryan0dhankhar/minilibrary/internal/service"
)

func newBooksCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Browse and manage the catalog",
	}
	cmd.AddCommand(
		newBooksListCmd(opts),
		newBooksGetCmd(opts),
		newBooksCreateCmd(opts),
		newBooksUpdateCmd(opts),
		newBooksDeleteCmd(opts),
		newBooksActionCmd(opts, "checkout", "Check a book out to yourself"),
		newBooksActionCmd(opts, "checkin", "Return a checked out book"),
	)
	return cmd
}

func newBooksListCmd(opts *globalOptions) *cobra.Command {
	var (
		page, limit           int
		sortBy, sortOrder, q  string
		status, genre, author string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books",
		RunE: func(cmd *cobra.Command, args []string) error {
			query := url.Values{}
			if page > 0 {
				query.Set("page", strconv.Itoa(page))
			}
			if limit > 0 {
				query.Set("limit", strconv.Itoa(limit))
			}
			for key, v := range map[string]string{
				"sortBy": sortBy, "sortOrder": sortOrder, "q": q,
				"status": strings.ToUpper(status), "genre": genre, "author": author,
			} {
				if v != "" {
					query.Set(key, v)
				}
			}

			path := "/books"
			if encoded := query.Encode(); encoded != "" {
				path += "?" + encoded
			}

			var result service.BookPage
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, path, nil, &result); err != nil {
				return err
			}
			return printBookTable(cmd.OutOrStdout(), &result)
		},
	}

	f := cmd.Flags()
	f.IntVar(&page, "page", 0, "page number")
	f.IntVar(&limit, "limit", 0, "page size (1-100)")
	f.StringVar(&sortBy, "sort-by", "", "title, author, createdAt, updatedAt, publishedYear or status")
	f.StringVar(&sortOrder, "sort-order", "", "asc or desc")
	f.StringVarP(&q, "query", "q", "", "free text search")
	f.StringVar(&status, "status", "", "AVAILABLE or CHECKED_OUT")
	f.StringVar(&genre, "genre", "", "genre substring")
	f.StringVar(&author, "author", "", "author substring")
	return cmd
}

func printBookTable(out io.Writer, page *service.BookPage) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tSTATUS")
	for _, b := range page.Data {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", b.ID, b.Title, b.Author, b.Status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	m := page.Meta
	_, err := fmt.Fprintf(out, "page %d/%d, %d total\n", m.Page, m.TotalPages, m.Total)
	return err
}

func newBooksGetCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var book domain.Book
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodGet, "/books/"+url.PathEscape(args[0]), nil, &book); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), book)
		},
	}
}

// bookFlags binds the editable fields. Only flags the user set are sent.
type bookFlags struct {
	title, author, isbn, genre, description, coverURL string
	year                                              int
	tags                                              []string
}

func (f *bookFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.title, "title", "", "title")
	fs.StringVar(&f.author, "author", "", "author")
	fs.StringVar(&f.isbn, "isbn", "", "ISBN")
	fs.StringVar(&f.genre, "genre", "", "genre")
	fs.StringVar(&f.description, "description", "", "description")
	fs.StringVar(&f.coverURL, "cover-url", "", "cover image URL")
	fs.IntVar(&f.year, "year", 0, "published year")
	fs.StringSliceVar(&f.tags, "tags", nil, "comma separated tags; pass --tags= to clear")
}

func (f *bookFlags) body(cmd *cobra.Command) map[string]any {
	body := map[string]any{}
	set := func(flag, field string, v any) {
		if cmd.Flags().Changed(flag) {
			body[field] = v
		}
	}
	set("title", "title", f.title)
	set("author", "author", f.author)
	set("isbn", "isbn", f.isbn)
	set("genre", "genre", f.genre)
	set("description", "description", f.description)
	set("cover-url", "coverImageUrl", f.coverURL)
	set("year", "publishedYear", f.year)
	if cmd.Flags().Changed("tags") {
		tags := f.tags
		if tags == nil {
			tags = []string{}
		}
		body["tags"] = tags
	}
	return body
}

func newBooksCreateCmd(opts *globalOptions) *cobra.Command {
	f := &bookFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Add a book (ADMIN or LIBRARIAN)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var book domain.Book
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, "/books", f.body(cmd), &book); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), book)
		},
	}
	f.bind(cmd)
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")
	return cmd
}

func newBooksUpdateCmd(opts *globalOptions) *cobra.Command {
	f := &bookFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change some fields of a book (ADMIN or LIBRARIAN)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var book domain.Book
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodPut, "/books/"+url.PathEscape(args[0]), f.body(cmd), &book); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), book)
		},
	}
	f.bind(cmd)
	return cmd
}

func newBooksDeleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book (ADMIN)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodDelete, "/books/"+url.PathEscape(args[0]), nil, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", args[0])
			return nil
		},
	}
}

func newBooksActionCmd(opts *globalOptions, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: short + " (ADMIN or LIBRARIAN)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var book domain.Book
			path := "/books/" + url.PathEscape(args[0]) + "/" + action
			if err := newAPIClient(opts).do(cmd.Context(), http.MethodPost, path, nil, &book); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is now %s\n", book.Title, book.Status)
			return nil
		},
	}
}
