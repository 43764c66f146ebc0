package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/drblury/msgflow/internal/runtime/capability"
	codecpkg "github.com/drblury/msgflow/internal/runtime/codec"
	"github.com/drblury/msgflow/internal/runtime/extensions"
	idspkg "github.com/drblury/msgflow/internal/runtime/ids"
	"github.com/drblury/msgflow/internal/runtime/models"
)

type processOptions struct {
	text        string
	attachments []string
	sender      string
	senderName  string
	fromMe      bool
	group       bool
	maxWidth    int
}

func newProcessCmd(root *rootOptions) *cobra.Command {
	opts := &processOptions{}
	cmd := &cobra.Command{
		Use:   "process",
		Short: "Plan one message locally and print the render plan as JSON",
		Example: `  msgflowd process --text "Your code is 482913"
  msgflowd process --attachment image/jpeg=IMG_1.jpg --attachment image/png=IMG_2.png`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			msg, err := opts.message(time.Now())
			if err != nil {
				return err
			}
			level := root.logLevel
			if level == "" {
				level = "error"
			}
			log, err := newLogger(cmd, level)
			if err != nil {
				return err
			}
			container, err := newContainer(log, extensions.Options{StrictIDs: root.strictIDs})
			if err != nil {
				return err
			}

			plan := container.Plan(cmd.Context(), msg, opts.planContext())
			out, err := codecpkg.MarshalIndent(plan, "", "  ")
			if err != nil {
				return fmt.Errorf("encode render plan: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVar(&opts.text, "text", "", "message text")
	cmd.Flags().StringArrayVar(&opts.attachments, "attachment", nil, "attachment as mime[=filename]; repeatable")
	cmd.Flags().StringVar(&opts.sender, "sender", "", "raw sender handle")
	cmd.Flags().StringVar(&opts.senderName, "sender-name", "", "display name for the sender decoration")
	cmd.Flags().BoolVar(&opts.fromMe, "from-me", false, "mark the message as outgoing")
	cmd.Flags().BoolVar(&opts.group, "group", false, "plan for a group conversation")
	cmd.Flags().IntVar(&opts.maxWidth, "max-width", 0, "available bubble width in points")
	return cmd
}

func (o *processOptions) message(now time.Time) (models.Message, error) {
	if o.text == "" && len(o.attachments) == 0 {
		return models.Message{}, fmt.Errorf("either --text or --attachment is required")
	}
	msg := models.Message{
		GUID:      idspkg.CreateULID(),
		Text:      o.text,
		Timestamp: now,
		IsFromMe:  o.fromMe,
		Sender:    o.sender,
	}
	for i, raw := range o.attachments {
		att, err := parseAttachment(raw)
		if err != nil {
			return models.Message{}, err
		}
		att.ID = int64(i + 1)
		att.GUID = idspkg.CreateULID()
		att.IsOutgoing = o.fromMe
		msg.Attachments = append(msg.Attachments, att)
	}
	return msg, nil
}

func (o *processOptions) planContext() extensions.PlanContext {
	return extensions.PlanContext{
		Render: capability.RenderContext{IsGroup: o.group, MaxWidth: o.maxWidth},
		Decorator: capability.DecoratorContext{
			IsGroup:        o.group,
			IsFirstInGroup: true,
			IsLastInGroup:  true,
			SenderName:     o.senderName,
		},
	}
}

// parseAttachment reads "mime" or "mime=filename".
func parseAttachment(raw string) (models.Attachment, error) {
	mime, filename, _ := strings.Cut(raw, "=")
	mime = strings.TrimSpace(mime)
	if mime == "" {
		return models.Attachment{}, fmt.Errorf("attachment %q: mime type is required", raw)
	}
	return models.Attachment{MIMEType: mime, Filename: strings.TrimSpace(filename)}, nil
}
