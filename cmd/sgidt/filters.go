package main

import (
	"github.com/spf13/cobra"

	"github.com/jhoicas/sgidt-documentos/internal/client"
)

// filterFlags flags compartidos por list, watch y report.
type filterFlags struct {
	search, from, to, docType, status string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "busca en RUT, folio y razón social")
	cmd.Flags().StringVar(&f.from, "from", "", "fecha de emisión desde (aaaa-mm-dd)")
	cmd.Flags().StringVar(&f.to, "to", "", "fecha de emisión hasta (aaaa-mm-dd)")
	cmd.Flags().StringVarP(&f.docType, "type", "t", "", "factura | boleta | nota_credito")
	cmd.Flags().StringVar(&f.status, "status", "", "pendiente | procesado | error")
}

func (f *filterFlags) state() client.FilterState {
	return client.FilterState{
		Search:    f.search,
		DateFrom:  f.from,
		DateTo:    f.to,
		DocType:   f.docType,
		DocStatus: f.status,
	}
}
