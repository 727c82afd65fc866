package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/relay/pkg/upstream"
)

// itemsCommand creates the items command group.
func (c *CLI) itemsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "items",
		Short: "Call the upstream items API directly",
	}

	cmd.AddCommand(c.itemsListCommand())
	cmd.AddCommand(c.itemsCreateCommand())
	cmd.AddCommand(c.itemsBrowseCommand())

	return cmd
}

type listOptions struct {
	all      bool
	pageSize int
	json     bool
}

func (c *CLI) itemsListCommand() *cobra.Command {
	var opts listOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items from the upstream API",
		Example: `  relay items list
  relay items list --all --page-size 40
  relay items list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runItemsList(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "follow cursors and fetch every page")
	cmd.Flags().IntVar(&opts.pageSize, "page-size", upstream.DefaultPageSize, "items per upstream page")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print JSON instead of a table")

	return cmd
}

func (c *CLI) runItemsList(ctx context.Context, w io.Writer, opts listOptions) error {
	items, err := c.fetchItems(ctx, opts.pageSize, opts.all)
	if err != nil {
		return err
	}
	if opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}
	fmt.Fprintln(w, renderItemTable(items, -1, 0, len(items)))
	fmt.Fprintln(w, StyleDim.Render(fmt.Sprintf("%d items", len(items))))
	return nil
}

// fetchItems loads one page, or every page when all is set.
func (c *CLI) fetchItems(ctx context.Context, pageSize int, all bool) ([]upstream.Item, error) {
	s, err := c.settings()
	if err != nil {
		return nil, err
	}
	client, err := c.newUpstream(s)
	if err != nil {
		return nil, err
	}

	prog := newProgress(c.Logger)
	spinner := newSpinnerWithContext(ctx, "Fetching items...")
	spinner.Start()

	var items []upstream.Item
	if all {
		items, err = client.CollectAllItems(ctx, pageSize)
	} else {
		var page *upstream.ItemPage
		if page, err = client.ListItemsPage(ctx, pageSize, nil); err == nil {
			items = page.Items
		}
	}
	spinner.Stop()
	if err != nil {
		return nil, err
	}
	prog.done(fmt.Sprintf("Fetched %d items", len(items)))
	return items, nil
}

func (c *CLI) itemsCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "create NAME",
		Short:   "Create an item upstream",
		Example: `  relay items create "Interview Item"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.settings()
			if err != nil {
				return err
			}
			client, err := c.newUpstream(s)
			if err != nil {
				return err
			}
			item, err := client.CreateItem(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printSuccess("Created item %s", StyleNumber.Render(fmt.Sprint(item.ID)))
			printKeyValue("Name", item.Name)
			return nil
		},
	}
}

func (c *CLI) itemsBrowseCommand() *cobra.Command {
	var pageSize int

	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse every upstream item interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := c.fetchItems(cmd.Context(), pageSize, true)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				printInfo("No items")
				return nil
			}
			final, err := tea.NewProgram(newItemBrowserModel(items), tea.WithContext(cmd.Context())).Run()
			if err != nil {
				return err
			}
			if m, ok := final.(itemBrowserModel); ok && m.selected != nil {
				printKeyValue("ID", fmt.Sprint(m.selected.ID))
				printKeyValue("Name", m.selected.Name)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", upstream.DefaultPageSize, "items per upstream page")
	return cmd
}
