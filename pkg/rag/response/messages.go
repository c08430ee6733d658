package response

// Fixed replies that are returned without consulting the model, or in place of a failed generation.
const (
	MessageUploadDocuments = "Please upload PDF documents to answer questions. This system is configured to work with documents only."
	MessageNoRelevantInfo  = "I couldn't find relevant information in the uploaded documents to answer your question. Please try asking something related to the content of the documents."
	MessageApology         = "I'm sorry, I couldn't generate a response right now. Please try again in a moment."
	MessageEmptyQuestion   = "Please enter a valid question"
	MessageNoDocsProcessed = "None of the documents could be processed successfully"
)

// DefaultClassification is what Complete answers when the model cannot be reached. It names the
// document question-answering category so that a failed classification answers from documents.
const DefaultClassification = "QUESTION FROM DOCUMENTS"
